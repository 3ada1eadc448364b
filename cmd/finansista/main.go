package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DominikIlski/Finansista/internal/config"
	"github.com/DominikIlski/Finansista/internal/fx"
	"github.com/DominikIlski/Finansista/internal/history"
	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/performance"
	"github.com/DominikIlski/Finansista/internal/platform/sqlite"
	"github.com/DominikIlski/Finansista/internal/provider"
	"github.com/DominikIlski/Finansista/internal/provider/chain"
	"github.com/DominikIlski/Finansista/internal/provider/frankfurter"
	"github.com/DominikIlski/Finansista/internal/provider/stooq"
	"github.com/DominikIlski/Finansista/internal/provider/twelvedata"
	"github.com/DominikIlski/Finansista/internal/quote"
	"github.com/DominikIlski/Finansista/internal/refresh"
	fxrepo "github.com/DominikIlski/Finansista/internal/repository/fx"
	historyrepo "github.com/DominikIlski/Finansista/internal/repository/history"
	holdingrepo "github.com/DominikIlski/Finansista/internal/repository/holding"
	quoterepo "github.com/DominikIlski/Finansista/internal/repository/quote"
	symbolrepo "github.com/DominikIlski/Finansista/internal/repository/symbol"
	"github.com/DominikIlski/Finansista/internal/server"
	"github.com/DominikIlski/Finansista/internal/symbol"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Root context: cancelled on SIGINT/SIGTERM so in-flight provider
	// fetches stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Repositories
	quoteRepo := quoterepo.NewRepository(db.DB)
	historyRepo := historyrepo.NewRepository(db.DB)
	fxRepo := fxrepo.NewRepository(db.DB)
	symbolRepo := symbolrepo.NewRepository(db.DB)
	holdingRepo := holdingrepo.NewRepository(db.DB)

	registry := market.NewRegistry()

	// Provider chain, in configured order. The chain appends the keyless
	// daily source itself if it is missing from the list.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	var providers []provider.Provider
	for _, name := range cfg.Sources {
		switch name {
		case twelvedata.Name:
			if cfg.TwelveDataAPIKey == "" {
				slog.Warn("twelvedata configured without API key, skipping")
				continue
			}
			providers = append(providers, twelvedata.New(cfg.TwelveDataAPIKey, twelvedata.WithClient(httpClient)))
		case stooq.Name:
			providers = append(providers, stooq.New(stooq.WithClient(httpClient)))
		case frankfurter.Name:
			providers = append(providers, frankfurter.New(frankfurter.WithClient(httpClient)))
		default:
			slog.Warn("unknown market data source, skipping", "source", name)
		}
	}
	providerChain := chain.New(providers...)

	// Services
	historySvc := history.NewService(historyRepo, providerChain, registry)
	quoteSvc := quote.NewService(quoteRepo, historyRepo, providerChain, registry, cfg.QuoteTTL)
	fxSvc := fx.NewService(fxRepo, providerChain, cfg.FxTTL)
	symbolSvc := symbol.NewService(symbolRepo, providerChain, registry, market.DefaultOverrides(), cfg.ValidationTTLDays)
	perfSvc := performance.NewService(holdingRepo, historySvc, fxSvc, registry)

	// Background quote warmer for held symbols.
	if cfg.RefreshSchedule != "" {
		refresher := refresh.New(holdingRepo, quoteSvc)
		if err := refresher.Start(rootCtx, cfg.RefreshSchedule); err != nil {
			slog.Error("failed to start quote refresher", "error", err)
			os.Exit(1)
		}
		defer refresher.Stop()
	}

	// HTTP server — rootCtx is used as BaseContext so every request context
	// inherits from it and is cancelled on shutdown.
	srv := server.New(rootCtx, cfg.Port, server.Services{
		Quotes:      quoteSvc,
		Histories:   historySvc,
		Fx:          fxSvc,
		Symbols:     symbolSvc,
		Performance: perfSvc,
		Markets:     registry,
	})

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	<-done

	rootCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
