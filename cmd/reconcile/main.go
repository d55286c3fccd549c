package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/procurement-api/internal/chain"
	"github.com/ksred/procurement-api/internal/database"
	"github.com/ksred/procurement-api/internal/inventory"
	"github.com/ksred/procurement-api/internal/reconcile"
	"github.com/ksred/procurement-api/pkg/events"
)

// main runs a single reconciliation sweep and prints the summary. Intended
// for cron or manual invocation alongside the server's background processor.
func main() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	zlog.Logger = zerolog.New(output).With().Timestamp().Logger()

	ledger := chain.NewHTTPLedger(os.Getenv("CHAIN_RPC_URL"), os.Getenv("CHAIN_PRIVATE_KEY"))
	if ledger == nil {
		zlog.Fatal().Msg("CHAIN_RPC_URL and CHAIN_PRIVATE_KEY must be set")
	}

	db, err := database.NewDatabase(os.Getenv("DB_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	var publisher *events.Publisher // no event stream for one-shot sweeps

	service := reconcile.NewService(db, ledger, inventory.NewService(db), publisher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := service.Run(ctx)
	if err != nil {
		zlog.Fatal().Err(err).Msg("reconciliation sweep failed")
	}

	if summary.Processed == 0 {
		zlog.Info().Msg("no submitted transactions")
		return
	}

	zlog.Info().
		Int("processed", summary.Processed).
		Int("confirmed", summary.Confirmed).
		Int("failed", summary.Failed).
		Int("pending", summary.Pending).
		Msg("reconcile summary")
}
