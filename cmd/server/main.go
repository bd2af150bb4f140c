package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/relsql/relsql"
	"github.com/relsql/relsql/internal"
	"github.com/relsql/relsql/server/relwire"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "optional YAML config file")
		addr    = flag.String("addr", "127.0.0.1:8877", "listen address")
		dataDir = flag.String("data-dir", "./data", "directory for database files")
		dbName  = flag.String("db", "local_db", "database name")
		debug   = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if *cfgPath != "" {
		cfg, err := internal.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		*addr = cfg.Server.Addr
		*dataDir = cfg.Storage.DataDir
		*dbName = cfg.Storage.Database
		*debug = cfg.Server.Debug
	}

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("create data directory: %v", err)
	}

	db, err := relsql.Open(*dbName, filepath.Join(*dataDir, *dbName+".json"))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	sc := relwire.ServerConfig{
		Addr:     *addr,
		DataDir:  *dataDir,
		Database: *dbName,
	}
	if err := relwire.Run(sc, db); err != nil {
		log.Fatalf("server: %v", err)
	}
}
