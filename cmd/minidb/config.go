package main

import (
	"time"

	"github.com/spf13/viper"
)

// Config carries the CLI defaults that can be overridden from a config
// file. Flags win over the file, the file wins over the built-in defaults.
type Config struct {
	Store StoreConfig
	Pool  PoolConfig
}

type StoreConfig struct {
	Path    string // store directory (pebble) or file (bolt)
	Backend string // "pebble" or "bolt"
	NoSync  bool   // disable per-mutation fsync
}

type PoolConfig struct {
	MaxConnections int
	AcquireTimeout time.Duration
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.path", "./minidb-data")
	v.SetDefault("store.backend", "pebble")
	v.SetDefault("store.no_sync", false)
	v.SetDefault("pool.max_connections", 10)
	v.SetDefault("pool.acquire_timeout", 30*time.Second)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Store.Path = v.GetString("store.path")
	cfg.Store.Backend = v.GetString("store.backend")
	cfg.Store.NoSync = v.GetBool("store.no_sync")
	cfg.Pool.MaxConnections = v.GetInt("pool.max_connections")
	cfg.Pool.AcquireTimeout = v.GetDuration("pool.acquire_timeout")

	return cfg, nil
}
