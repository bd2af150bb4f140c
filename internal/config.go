package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type RelSqlConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		DataDir  string `mapstructure:"data_dir"`
		Database string `mapstructure:"database"`
	} `mapstructure:"storage"`

	Server struct {
		Addr  string `mapstructure:"addr"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"server"`
}

func LoadConfig(path string) (*RelSqlConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app_name", "relsql")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.database", "local_db")
	v.SetDefault("server.addr", "127.0.0.1:8877")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg RelSqlConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
