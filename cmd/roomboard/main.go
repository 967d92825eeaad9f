package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/roomboard/internal/application"
	"github.com/example/roomboard/internal/bridge"
	"github.com/example/roomboard/internal/config"
	"github.com/example/roomboard/internal/httpapi"
	"github.com/example/roomboard/internal/logging"
	"github.com/example/roomboard/internal/persistence"
	"github.com/example/roomboard/internal/persistence/httpstore"
	"github.com/example/roomboard/internal/persistence/sqlite"
	"github.com/example/roomboard/internal/registry"
	"github.com/example/roomboard/internal/temporal"
)

func main() {
	configPath := flag.String("config", "roomboard.yaml", "path to the configuration file")
	flag.Parse()

	// Best effort: absent .env files are fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New("info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var records persistence.RecordStore
	switch cfg.Persistence.Mode {
	case "http":
		records = httpstore.New(cfg.Persistence.BaseURL, cfg.PersistenceTimeout(), logger)
	case "sqlite":
		storage, err := sqlite.Open(cfg.Persistence.SQLiteDSN, nil)
		if err != nil {
			logger.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := storage.Close(); cerr != nil {
				logger.Error("failed to close storage", "error", cerr)
			}
		}()
		records = storage
	}

	var sensors bridge.Bridge = bridge.Nop{}
	if cfg.Bridge.URL != "" {
		sensors = bridge.NewWebsocket(cfg.Bridge.URL, logger)
	}

	rooms := make([]registry.Room, 0, len(cfg.Rooms))
	for _, entry := range cfg.Rooms {
		rooms = append(rooms, registry.Room{Key: entry.Key, DisplayName: entry.Name})
	}

	working := application.DefaultWorkingHours()
	working.Enforce = cfg.WorkingHours.Enforce
	if start, err := temporal.ParseTime(cfg.WorkingHours.Start); err == nil {
		working.StartMinutes = start
	}
	if end, err := temporal.ParseTime(cfg.WorkingHours.End); err == nil {
		working.EndMinutes = end
	}

	ttl, err := cfg.ParsedSessionTTL()
	if err != nil {
		logger.Error("invalid session ttl", "error", err)
		os.Exit(1)
	}

	app, err := application.New(application.Options{
		Rooms:          rooms,
		Records:        records,
		Bridge:         sensors,
		TZOffsetHours:  cfg.TZOffsetHours,
		TickPeriod:     cfg.TickPeriod(),
		Working:        working,
		PersistTimeout: cfg.PersistenceTimeout(),
		GatePassword:   cfg.GatePassword,
		SessionTTL:     ttl,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to assemble core", "error", err)
		os.Exit(1)
	}

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start core", "error", err)
		os.Exit(1)
	}
	defer app.Stop()

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.NewRouter(app, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("roomboard API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
