package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/CTAG07/wordchain/pkg/markov"
	"github.com/CTAG07/wordchain/pkg/registry"
	"github.com/CTAG07/wordchain/pkg/store"
)

// rootOptions holds the persistent command line flags.
type rootOptions struct {
	configPath   string
	logLevel     string
	databasePath string
}

// app bundles everything a command needs: configuration, logger, database,
// store and registry.
type app struct {
	cm       *ConfigManager
	logger   *slog.Logger
	db       *sql.DB
	store    *store.Store
	registry *registry.Registry
}

// newApp loads the configuration, applies flag overrides and opens the model
// store.
func newApp(opts *rootOptions) (*app, error) {
	cm, err := NewConfigManager(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cm.Override(func(c *Config) {
		if opts.logLevel != "" {
			c.LogLevel = opts.logLevel
		}
		if opts.databasePath != "" {
			c.DatabasePath = opts.databasePath
		}
	})
	config := cm.Get()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	db, err := initDB(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create model store: %w", err)
	}
	s.SetLogger(logger)

	reg := registry.New(s, registry.WithAutosave(config.Autosave))
	reg.SetLogger(logger)

	return &app{
		cm:       cm,
		logger:   logger,
		db:       db,
		store:    s,
		registry: reg,
	}, nil
}

// generateOptions turns the configured defaults into generation options.
func (a *app) generateOptions(length int, gapFill bool) []markov.GenerateOption {
	config := a.cm.Get()
	return []markov.GenerateOption{
		markov.WithTargetLength(length),
		markov.WithGapFill(gapFill),
		markov.WithMaxSteps(config.Generation.MaxSteps),
	}
}

// Close releases the store and the database.
func (a *app) Close() error {
	a.store.Close()
	return a.db.Close()
}
