package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Meghavibansod/HealthLedger/internal/ledger"
	"github.com/Meghavibansod/HealthLedger/internal/server"
	"github.com/Meghavibansod/HealthLedger/internal/storage/leveldb"
	"github.com/Meghavibansod/HealthLedger/internal/storage/postgres"
	"github.com/Meghavibansod/HealthLedger/pkg/config"
	"github.com/Meghavibansod/HealthLedger/pkg/database"
	"github.com/Meghavibansod/HealthLedger/pkg/logger"
	"github.com/Meghavibansod/HealthLedger/pkg/state"
	"github.com/Meghavibansod/HealthLedger/pkg/types"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)
	log.WithField("backend", cfg.Storage.Backend).Info("Starting HealthLedger service")

	// Open the state store
	store, err := openStore(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to open state store")
		os.Exit(1)
	}
	defer store.Close()

	// Recover the ledger over existing state
	l := ledger.New(store, log)

	// Apply the configured administrator on a fresh store
	if err := bootstrapAdmin(l, cfg, log); err != nil {
		log.WithError(err).Error("Failed to bootstrap administrator")
		os.Exit(1)
	}

	// Start the HTTP server
	srv := server.New(l, log, cfg)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down HealthLedger service")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	log.Info("HealthLedger service stopped")
}

// openStore opens the configured state store backend.
func openStore(cfg *config.Config, log *logger.Logger) (state.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		log.Warn("Using the in-memory state store; ledger state will not survive a restart")
		return state.NewMemoryStore(), nil
	case "leveldb":
		return leveldb.Open(cfg.Storage.Path)
	case "postgres":
		db, err := database.NewConnection(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return postgres.New(db)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// bootstrapAdmin initializes the administrator once on a fresh store.
func bootstrapAdmin(l *ledger.Ledger, cfg *config.Config, log *logger.Logger) error {
	initialized, err := l.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		log.Info("Ledger already initialized, keeping existing administrator")
		return nil
	}
	if cfg.AdminAddress == "" {
		return fmt.Errorf("fresh state store and no admin_address configured")
	}

	admin, err := types.ParseIdentity(cfg.AdminAddress)
	if err != nil {
		return err
	}
	return l.Initialize(admin)
}
