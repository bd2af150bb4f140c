package relwire

import (
	"context"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/relsql/relsql/internal/engine"
	"github.com/relsql/relsql/internal/sql/executor"
)

type ServerConfig struct {
	Addr     string
	DataDir  string
	Database string
}

// Run serves the wire protocol until SIGINT/SIGTERM. Every connection shares
// one database; the engine's internal lock serializes writers against the
// full mutate-plus-save sequence, so concurrent clients never observe a
// half-applied statement.
func Run(sc ServerConfig, db *engine.Database) error {
	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() { _ = ln.Close() }()

	log.Printf("relsql tcp server listening on %s (database=%s)", sc.Addr, db.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	ex := executor.New(db)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			log.Printf("accept: %v", err)
			continue
		}
		go handleConn(ctx, conn, ex)
	}
}

func handleConn(ctx context.Context, conn net.Conn, ex *executor.Executor) {
	defer func() { _ = conn.Close() }()

	// No global deadline; the client sets per-request deadlines if it wants.
	_ = conn.SetDeadline(time.Time{})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			// Client closed or bad frame.
			return
		}

		res, err := ex.Execute(req.SQL)
		if err != nil {
			_ = WriteFrame(conn, ExecuteResponse{
				ID:    req.ID,
				Error: err.Error(),
			})
			continue
		}

		_ = WriteFrame(conn, ExecuteResponse{
			ID:     req.ID,
			Result: res,
		})
	}
}
