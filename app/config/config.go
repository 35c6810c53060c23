package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"textsubmission/app/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "textsubmission.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	EnvPrefix = "TEXTSUB"

	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"

	DefaultConfigFile = "textsubmission.yaml"
	SystemConfigFile  = "/etc/textsubmission/textsubmission.yaml"
)

type Config struct {
	ListenAddr      string   `yaml:"listenAddr"      split_words:"true"`
	ShutdownTimeout string   `yaml:"shutdownTimeout" split_words:"true"`
	DatabaseDriver  string   `yaml:"databaseDriver"  split_words:"true"`
	DatabasePath    string   `yaml:"databasePath"    split_words:"true"`
	DatabaseDSN     string   `yaml:"databaseDSN"     envconfig:"DATABASE_DSN"`
	CorsOrigins     []string `yaml:"corsOrigins"     split_words:"true"`
	MetricsEnabled  bool     `yaml:"metricsEnabled"  split_words:"true"`
	// Authoritative bound applied before persisting
	ServerTextMax int `yaml:"serverTextMax" split_words:"true"`
	// UX bounds applied by the form and dashboard
	ClientTextMin int    `yaml:"clientTextMin" split_words:"true"`
	ClientTextMax int    `yaml:"clientTextMax" split_words:"true"`
	ApiURL        string `yaml:"apiURL"        envconfig:"API_URL"`
}

// Default returns a fresh configuration holding the built-in defaults.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		ShutdownTimeout: "15s",
		DatabaseDriver:  DriverSqlite,
		DatabasePath:    "data",
		CorsOrigins:     []string{"http://localhost:4200"},
		MetricsEnabled:  true,
		ServerTextMax:   models.DefaultServerRule.Max,
		ClientTextMin:   models.DefaultClientRule.Min,
		ClientTextMax:   models.DefaultClientRule.Max,
		ApiURL:          "http://localhost:8080",
	}
}

// Load builds the configuration from defaults, then the YAML file, then a
// .env file in the working directory, then TEXTSUB_* environment variables.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		for _, candidate := range []string{DefaultConfigFile, SystemConfigFile} {
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
				break
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverSqlite, DriverBadger:
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("databaseDSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf(
			"invalid databaseDriver: %q (must be 'sqlite', 'postgres', or 'badger')",
			c.DatabaseDriver,
		)
	}
	if c.ServerTextMax <= 0 {
		return fmt.Errorf("serverTextMax must be positive, got %d", c.ServerTextMax)
	}
	if c.ClientTextMin <= 0 || c.ClientTextMax <= 0 {
		return fmt.Errorf("client text bounds must be positive, got %d..%d", c.ClientTextMin, c.ClientTextMax)
	}
	if c.ClientTextMin > c.ClientTextMax {
		return fmt.Errorf("clientTextMin %d exceeds clientTextMax %d", c.ClientTextMin, c.ClientTextMax)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	return d, nil
}

// ServerRule is the text rule the API enforces.
func (c *Config) ServerRule() models.TextRule {
	return models.TextRule{Min: models.DefaultServerRule.Min, Max: c.ServerTextMax}
}

// ClientRule is the text rule the form and dashboard enforce.
func (c *Config) ClientRule() models.TextRule {
	return models.TextRule{Min: c.ClientTextMin, Max: c.ClientTextMax}
}

// SqlitePath is where the sqlite driver keeps its database file.
func (c *Config) SqlitePath() string {
	return filepath.Join(c.DatabasePath, "submissions.sqlite")
}

// BadgerPath is where the badger driver keeps its files.
func (c *Config) BadgerPath() string {
	return filepath.Join(c.DatabasePath, "badger")
}
