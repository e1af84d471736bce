package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// GenerationConfig holds the defaults applied to every generation request.
type GenerationConfig struct {
	MaxSteps int  `json:"max_steps"`
	GapFill  bool `json:"gap_fill"`
}

// Config is the top-level configuration stored in the JSON config file.
type Config struct {
	ServerAddr   string           `json:"server_addr"`
	LogLevel     string           `json:"log_level"`
	DatabasePath string           `json:"database_path"`
	SeedExample  bool             `json:"seed_example"`
	Autosave     bool             `json:"autosave"`
	Generation   GenerationConfig `json:"generation"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:   ":7280",
		LogLevel:     "info",
		DatabasePath: "./wordchain.db",
		SeedExample:  false,
		Autosave:     true,
		Generation: GenerationConfig{
			MaxSteps: 1000,
			GapFill:  false,
		},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return errors.New("server_addr must not be empty")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path must not be empty")
	}
	if c.Generation.MaxSteps < 0 {
		return errors.New("generation.max_steps must not be negative")
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}

// ConfigManager handles thread-safe access to the configuration. It keeps the
// configuration as saved on disk apart from the live one, which also carries
// the command line overrides.
type ConfigManager struct {
	saved      Config
	config     *Config
	overrides  []func(*Config)
	mu         sync.RWMutex
	configPath string
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &ConfigManager{saved: *cfg, config: cfg, configPath: path}, nil
}

// Get returns a copy of the live configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Saved returns a copy of the configuration as it is stored on disk, without
// overrides.
func (cm *ConfigManager) Saved() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.saved
}

// Override changes the live configuration without saving it. It is used for
// command line flags and stays in effect across Update.
func (cm *ConfigManager) Override(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.overrides = append(cm.overrides, fn)
	fn(cm.config)
}

// Update validates newConfig, saves it to disk and makes it current with the
// overrides applied on top.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	data, err := json.MarshalIndent(newConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cm.saved = newConfig
	live := newConfig
	for _, fn := range cm.overrides {
		fn(&live)
	}
	*cm.config = live
	return nil
}

// parseLogLevel maps a config level name to a slog.Level. Unknown names are
// treated as info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
