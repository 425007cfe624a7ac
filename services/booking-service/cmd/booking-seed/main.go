// Command booking-seed loads event types and a weekly schedule into the
// booking database. Without -file it uses the built-in fixture.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/migrations"
)

func main() {
	file := flag.String("file", "", "YAML fixture path (defaults to the built-in fixture)")
	flag.Parse()

	logger := runtime.NewLogger("booking-seed")
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	raw := defaultFixture
	if *file != "" {
		if raw, err = os.ReadFile(*file); err != nil {
			logger.Error("read fixture failed", "err", err)
			os.Exit(1)
		}
	}
	f, err := parseFixture(raw)
	if err != nil {
		logger.Error("invalid fixture", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := migrations.Up(ctx, pool, logger); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	res, err := apply(ctx, catalog.NewService(storage.NewPgStore(pool), logger), f, logger)
	if err != nil {
		logger.Error("seed failed", "err", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "created", res.Created, "skipped", res.Skipped, "windows", res.Windows)
}
