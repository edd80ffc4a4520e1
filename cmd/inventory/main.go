package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockbook/internal/config"
	"github.com/mamadbah2/stockbook/internal/console"
	"github.com/mamadbah2/stockbook/internal/repository/sheets"
	ledgersvc "github.com/mamadbah2/stockbook/internal/service/ledger"
	"github.com/mamadbah2/stockbook/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// log lines share the terminal with the menu
	cfg.Log.Encoding = "console"
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}

	baseLogger := logger.Must(logger.New(cfg.Log))
	defer func() { _ = baseLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sheets.Open(ctx, *cfg, logger.Named(baseLogger, "repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.Error(err))
	}

	location, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("failed to resolve timezone", zap.Error(err))
	}

	ledger := ledgersvc.NewService(store, cfg.Sheets, location, logger.Named(baseLogger, "svc.ledger"))

	if err := console.New(ledger, os.Stdin, os.Stdout, logger.Named(baseLogger, "console")).Run(ctx); err != nil && ctx.Err() == nil {
		baseLogger.Error("console stopped", zap.Error(err))
		os.Exit(1)
	}
}
