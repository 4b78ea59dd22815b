package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/sxwebdev/minidb"
)

type cli struct {
	Config  string `help:"Path to a config file (yaml/toml/json)." type:"path" short:"c"`
	Path    string `help:"Store location (overrides the config file)."`
	Backend string `help:"Storage backend: pebble or bolt (overrides the config file)."`

	Set  setCmd  `cmd:"" help:"Store a raw key-value pair."`
	Get  getCmd  `cmd:"" help:"Print the value stored under a key."`
	Del  delCmd  `cmd:"" help:"Delete a key."`
	Keys keysCmd `cmd:"" help:"List every key in the store."`
	Demo demoCmd `cmd:"" help:"Run a guided walkthrough of tables, indexes, transactions and pooling."`
}

type app struct {
	cfg *Config
}

func (a *app) openStore() (minidb.Store, error) {
	switch a.cfg.Store.Backend {
	case "bolt":
		return minidb.OpenBolt(a.cfg.Store.Path, minidb.WithNoSync(a.cfg.Store.NoSync))
	default:
		return minidb.Open(a.cfg.Store.Path, minidb.WithNoSync(a.cfg.Store.NoSync))
	}
}

type setCmd struct {
	Key   string `arg:""`
	Value string `arg:""`
}

func (c *setCmd) Run(a *app) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Set(c.Key, []byte(c.Value))
}

type getCmd struct {
	Key string `arg:""`
}

func (c *getCmd) Run(a *app) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	value, err := store.Get(c.Key)
	if err != nil {
		return err
	}
	fmt.Println(string(value))
	return nil
}

type delCmd struct {
	Key string `arg:""`
}

func (c *delCmd) Run(a *app) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Delete(c.Key)
}

type keysCmd struct{}

func (c *keysCmd) Run(a *app) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

type demoCmd struct{}

// Run walks through the whole feature surface against a throwaway store.
func (c *demoCmd) Run(a *app) error {
	dir, err := os.MkdirTemp("", "minidb-demo")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	db, err := minidb.OpenDB(filepath.Join(dir, "demo"))
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := db.CreateTable("users")
	if err != nil {
		return err
	}
	if err := users.CreateIndex("name"); err != nil {
		return err
	}

	key1, err := users.Insert(minidb.Row{
		"id":    minidb.Int(1),
		"name":  minidb.String("Alice"),
		"email": minidb.String("alice@example.com"),
	})
	if err != nil {
		return err
	}
	key2, err := users.Insert(minidb.Row{
		"id":    minidb.Int(2),
		"name":  minidb.String("Bob"),
		"email": minidb.String("bob@example.com"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Inserted Alice with key: %s\n", key1)
	fmt.Printf("Inserted Bob with key: %s\n", key2)

	row, _, err := users.Query(key1)
	if err != nil {
		return err
	}
	fmt.Printf("Queried user 1: %v\n", row)

	matches, err := users.QueryByField("name", minidb.String("Bob"))
	if err != nil {
		return err
	}
	fmt.Printf("Rows named Bob: %d\n", len(matches))

	if _, err := users.Update(key1, minidb.Row{
		"name":  minidb.String("Alice Smith"),
		"email": minidb.String("alice.smith@example.com"),
	}); err != nil {
		return err
	}
	row, _, err = users.Query(key1)
	if err != nil {
		return err
	}
	fmt.Printf("Updated user 1: %v\n", row)

	if _, err := users.Delete(key2); err != nil {
		return err
	}
	count, err := users.CountRows()
	if err != nil {
		return err
	}
	fmt.Printf("Users after delete: %d\n", count)
	fmt.Printf("Tables: %v\n", db.ListTables())

	// A transaction staging a couple of raw writes.
	tm := minidb.NewTransactionManager(nil)
	err = tm.Do(context.Background(), db.Store(), func(ctx context.Context, tx *minidb.Transaction) error {
		if err := tx.Set("meta:version", []byte("1")); err != nil {
			return err
		}
		return tx.Set("meta:owner", []byte("demo"))
	})
	if err != nil {
		return err
	}
	version, err := db.Store().Get("meta:version")
	if err != nil {
		return err
	}
	fmt.Printf("Committed meta:version = %s\n", version)

	// A pool handing out stores in per-connection directories.
	next := 0
	pool := minidb.NewConnectionPool(func() (minidb.Store, error) {
		next++
		return minidb.Open(filepath.Join(dir, fmt.Sprintf("conn-%d", next)))
	}, minidb.WithMaxConnections(a.cfg.Pool.MaxConnections),
		minidb.WithAcquireTimeout(a.cfg.Pool.AcquireTimeout))
	defer pool.Close()

	err = pool.WithConnection(func(conn *minidb.Connection) error {
		return conn.Store().Set("hello", []byte("world"))
	})
	if err != nil {
		return err
	}
	fmt.Println("Pool demo done")

	return nil
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("minidb"),
		kong.Description("Minimal embedded data store with tables, indexes, transactions and pooling."),
		kong.UsageOnError(),
	)

	cfg, err := loadConfig(c.Config)
	kctx.FatalIfErrorf(err)
	if c.Path != "" {
		cfg.Store.Path = c.Path
	}
	if c.Backend != "" {
		cfg.Store.Backend = c.Backend
	}

	kctx.FatalIfErrorf(kctx.Run(&app{cfg: cfg}))
}
