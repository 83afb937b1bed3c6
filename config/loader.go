package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CREDITRISK"

// Loader reads configuration from config.yaml, an optional .env file and
// CREDITRISK_* environment variables, in increasing priority.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader. An explicit file wins over the search paths.
func NewLoader(file string) *Loader {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	applyDefaults(v)
	return &Loader{v: v}
}

func (l *Loader) Load() (*Config, error) {
	loadEnvFile(".env")

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// WatchLogLevel calls fn with the configured log level every time the
// config file changes on disk. Nothing else is reloaded.
func (l *Loader) WatchLogLevel(fn func(level string)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(l.v.GetString("logging.level"))
	})
	l.v.WatchConfig()
}

// ConfigFile returns the file the loader read, empty when none was found.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

func loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "creditrisk")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 120*time.Second)
	v.SetDefault("http.request_timeout", 5*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.max_body_bytes", 1<<20)
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("artifacts.model_type", "")
	v.SetDefault("artifacts.model", "artifacts/model.json")
	v.SetDefault("artifacts.encoder", "artifacts/label_encoder.yaml")
	v.SetDefault("artifacts.scaler", "artifacts/scaler.json")

	v.SetDefault("cache.size", 1024)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", "data/creditrisk.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("metrics.enabled", true)
}

func validateConfig(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", cfg.HTTP.Port)
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.max_body_bytes must be positive")
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		return errors.New("http.request_timeout must be positive")
	}
	if cfg.Artifacts.Model == "" || cfg.Artifacts.Encoder == "" || cfg.Artifacts.Scaler == "" {
		return errors.New("artifacts.model, artifacts.encoder and artifacts.scaler are required")
	}
	if cfg.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	if cfg.Database.Enabled && cfg.Database.Path == "" {
		return errors.New("database.path is required when the database is enabled")
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", cfg.Logging.Format)
	}
	return nil
}
