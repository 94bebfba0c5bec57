// Command migrate applies the embedded goose migrations.
//
//	migrate [up|down|status]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/db"
	"github.com/geocoder89/habithub/internal/observability"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status]")
	}
	flag.Parse()

	command := db.MigrateUp
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadDB()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	ctx, cancel := config.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DBURL, 1)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, command); err != nil {
		log.Error("migrate failed", "command", command, "err", err)
		pool.Close()
		os.Exit(1)
	}

	log.Info("migrate done", "command", command)
}
