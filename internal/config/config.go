package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// #region config-types
// Config is the controller configuration, loaded from YAML.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Replay ReplayConfig `yaml:"replay"`
}

// ServerConfig configures the gRPC and metrics listeners.
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr" validate:"required,hostname_port"`
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	Record      bool   `yaml:"record"` // persist steps that carry an episode_id
}

// StoreConfig configures the SQLite episode store.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn error"`
	Encoding string `yaml:"encoding" validate:"oneof=json console"`
}

// ReplayConfig configures fixture and DB replays.
type ReplayConfig struct {
	Workers   int     `yaml:"workers" validate:"gte=1,lte=256"`
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
}

// #endregion config-types

// #region defaults
// Default returns sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			GRPCAddr:    "localhost:50061",
			MetricsAddr: "localhost:9464",
		},
		Store: StoreConfig{Path: "trackreward.db"},
		Log:   LogConfig{Level: "info", Encoding: "json"},
		Replay: ReplayConfig{
			Workers:   4,
			Tolerance: 1e-9,
		},
	}
}

// #endregion defaults

// #region load
var validate = validator.New()

// Load reads path over the defaults, applies environment overrides and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %s", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// #endregion load

// #region env
func applyEnv(cfg *Config) error {
	cfg.Store.Path = envOr("TRACKREWARD_DB", cfg.Store.Path)
	cfg.Server.GRPCAddr = envOr("TRACKREWARD_GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.MetricsAddr = envOr("TRACKREWARD_METRICS_ADDR", cfg.Server.MetricsAddr)
	cfg.Log.Level = envOr("TRACKREWARD_LOG_LEVEL", cfg.Log.Level)
	if v := os.Getenv("TRACKREWARD_REPLAY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRACKREWARD_REPLAY_WORKERS: %w", err)
		}
		cfg.Replay.Workers = n
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env
