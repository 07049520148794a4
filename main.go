package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/medicament-rotations/config"
	"github.com/giygas/medicament-rotations/data"
	"github.com/giygas/medicament-rotations/handlers"
	"github.com/giygas/medicament-rotations/health"
	"github.com/giygas/medicament-rotations/interfaces"
	"github.com/giygas/medicament-rotations/logging"
	"github.com/giygas/medicament-rotations/scheduler"
	"github.com/giygas/medicament-rotations/server"
	"github.com/giygas/medicament-rotations/storage/filestore"
	"github.com/giygas/medicament-rotations/storage/memory"
	"github.com/giygas/medicament-rotations/storage/postgres"
	"github.com/giygas/medicament-rotations/validation"
	"github.com/joho/godotenv"
)

func init() {
	// Get the working directory and read the env variables
	if err := godotenv.Load(); err != nil {
		// If failed, try loading from executable directory
		ex, err := os.Executable()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to get executable path:", err)
			os.Exit(1)
		}
		exPath := filepath.Dir(ex)
		if err := os.Chdir(exPath); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to change directory:", err)
			os.Exit(1)
		}
		_ = godotenv.Load()
	}
}

// openStore builds the record store selected by STORE_BACKEND. The returned
// close function releases its resources.
func openStore(ctx context.Context, cfg *config.Config) (interfaces.RecordStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case config.BackendMemory:
		if cfg.SeedFile == "" {
			logging.Warn("No SEED_FILE set, starting with an empty memory store")
			return memory.New(), noop, nil
		}
		store, err := memory.LoadSeed(cfg.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.BackendFile:
		return filestore.New(cfg.DataFile,
			filestore.WithLocation(cfg.Location),
			filestore.WithCharset(cfg.DataCharset),
		), noop, nil

	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return postgres.New(db), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	// File logging failures are reported by Init and leave console logging on
	_ = logging.Init(logging.Options{
		Dir:            cfg.LogDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() { _ = logging.Close() }()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"backend", cfg.StoreBackend,
		"timezone", cfg.Location.String(),
		"refresh_interval_minutes", cfg.RefreshInterval,
	)

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		logging.Error("Failed to open record store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logging.Warn("Failed to close record store", "error", err)
		}
	}()

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())
	validator := validation.NewDataValidator()

	sched := scheduler.NewScheduler(dataContainer, store, validator, cfg.Location,
		time.Duration(cfg.RefreshInterval)*time.Minute)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	healthChecker := health.NewHealthChecker(dataContainer, cfg.Location)
	httpHandler := handlers.NewHTTPHandler(dataContainer, validator, healthChecker, sched, store, cfg.Location)
	srv := server.NewServer(cfg, httpHandler)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed to start", "error", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}
