package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"smc_bot/internal/modules/config"
	"smc_bot/pkg/db"
)

func migrate(ctx context.Context, dsn string) error {
	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: dsn})
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	tx := db.NewPgTxManager(pool)
	defer tx.Close()

	if err := pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "ping database")
	}
	if err := db.Migrate(ctx, tx.Conn()); err != nil {
		return errors.Wrap(err, "apply schema")
	}
	return nil
}

// usage: migrate [schema]
//
// Without arguments the schema is applied to storage.db_dsn (or
// DATABASE_DSN); "schema" only prints the DDL.
func main() {
	if len(os.Args) > 1 && os.Args[1] == "schema" {
		fmt.Println(strings.Join(db.Schema(), "\n\n"))
		return
	}

	cfg, err := config.NewConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}
	if cfg.Storage.DB == "" {
		panic("has no storage.db_dsn in config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := migrate(ctx, cfg.Storage.DB); err != nil {
		panic(fmt.Errorf("migrate: %w", err))
	}
	fmt.Println("done")
}
