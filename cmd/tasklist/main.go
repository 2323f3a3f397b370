package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tasklist/app"
	"tasklist/auth"
	"tasklist/config"
	"tasklist/logging"
	"tasklist/model"
	"tasklist/remote"
	"tasklist/store"
	"tasklist/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default ~/.config/tasklist/config.toml)")
	backend := flag.String("backend", "", "data backend: local or remote")
	storage := flag.String("storage", "", "persistence: file, sqlite or memory")
	dataDir := flag.String("data-dir", "", "directory for saved state")
	apiURL := flag.String("api-url", "", "REST API root for the remote backend")
	ephemeral := flag.Bool("ephemeral", false, "keep everything in memory")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "tasklist: load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
		return 1
	}
	cfg.Apply(config.Overrides{
		Backend: *backend,
		Storage: *storage,
		DataDir: *dataDir,
		APIURL:  *apiURL,
	})
	if *ephemeral {
		cfg.Storage = config.StorageMemory
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := start(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
		return 1
	}
	return 0
}

func start(ctx context.Context, cfg config.Config) error {
	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Prefix:     "tasklist",
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer logCloser.Close()

	kv, kvCloser, err := openKV(cfg)
	if err != nil {
		return err
	}
	defer kvCloser.Close()

	writer := store.NewWriter(kv, logger)
	defer writer.Close()

	backend, authn, err := newBackend(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting", "backend", backend.Name(), "storage", cfg.Storage, "data_dir", cfg.DataDir)

	svc := app.New(backend, app.Options{Persister: writer, Logger: logger})
	manager := auth.NewManager(kv, authn, logger)

	load := func() tui.Hydration {
		state, report := store.Load(kv)
		if report.Message != "" {
			logger.Warn("state load", "source", report.Source, "msg", report.Message, "err", report.Err)
		}
		if report.Source == store.SourceSeed && cfg.Backend == config.BackendRemote {
			state = model.EmptyState()
		}
		return tui.Hydration{State: state, Message: report.Message}
	}

	return tui.Run(ctx, tui.Options{
		Service: svc,
		Auth:    manager,
		Load:    load,
		Context: ctx,
		Logger:  logger,
	})
}

func openKV(cfg config.Config) (store.KV, io.Closer, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return store.NewMemoryKV(), nopCloser{}, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		db, err := store.OpenSQLite(cfg.StatePath())
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	default:
		kv, err := store.NewFileKV(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return kv, nopCloser{}, nil
	}
}

func newBackend(cfg config.Config) (app.Backend, auth.Authenticator, error) {
	if cfg.Backend != config.BackendRemote {
		return app.NewLocalBackend(), auth.NewMock(0), nil
	}
	client, err := remote.NewClient(remote.Options{
		BaseURL: cfg.APIURL,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
