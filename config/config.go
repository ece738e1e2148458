// Package config loads the agent's startup configuration: a small YAML
// file for everything that is not a secret or a deployment endpoint, and
// environment variables (via a local .env file, loaded if present) for
// credentials and endpoints, per the control surface's separation of
// concerns.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full startup configuration for cmd/agent.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	RiskOff  RiskOffConfig  `yaml:"risk_off"`
	Log      LogConfig      `yaml:"log"`
	Strategy StrategyConfig `yaml:"strategy"`

	// Endpoints and credentials never live in the YAML file; they are
	// populated from the environment after Load reads it.
	Endpoints   Endpoints
	Credentials Credentials
}

// RegistryConfig points at the Market Registry's backing YAML file.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// RiskOffConfig points at the Risk-Off Registry's SQLite file.
type RiskOffConfig struct {
	DSN string `yaml:"dsn"`
}

// LogConfig controls log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// StrategyConfig holds process-wide strategy defaults that are not
// per-profile (those live in the Market Registry file).
type StrategyConfig struct {
	DefaultProfile string `yaml:"default_profile"`
}

// Endpoints is populated entirely from the environment.
type Endpoints struct {
	CLOBRestBase string
	BookStreamWS string
	UserStreamWS string
}

// Credentials is populated entirely from the environment; it is never
// logged or written to the YAML file.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
	Address    string // wallet address that owns every order the bot places
}

// Load reads the YAML config at path, layers a local .env (if present),
// and fills in endpoints/credentials from the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	cfg.Endpoints = Endpoints{
		CLOBRestBase: os.Getenv("CLOB_REST_BASE"),
		BookStreamWS: os.Getenv("CLOB_WS_BOOK_URL"),
		UserStreamWS: os.Getenv("CLOB_WS_USER_URL"),
	}
	cfg.Credentials = Credentials{
		APIKey:     os.Getenv("POLY_API_KEY"),
		Secret:     os.Getenv("POLY_API_SECRET"),
		Passphrase: os.Getenv("POLY_API_PASSPHRASE"),
		Address:    os.Getenv("POLY_WALLET_ADDRESS"),
	}
}

func setDefaults(cfg *Config) {
	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "registry.yaml"
	}
	if cfg.RiskOff.DSN == "" {
		cfg.RiskOff.DSN = "riskoff.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Strategy.DefaultProfile == "" {
		cfg.Strategy.DefaultProfile = "default"
	}
	if cfg.Endpoints.CLOBRestBase == "" {
		cfg.Endpoints.CLOBRestBase = "https://clob.polymarket.com"
	}
	if cfg.Endpoints.BookStreamWS == "" {
		cfg.Endpoints.BookStreamWS = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	}
	if cfg.Endpoints.UserStreamWS == "" {
		cfg.Endpoints.UserStreamWS = "wss://ws-subscriptions-clob.polymarket.com/ws/user"
	}
}

func (c *Config) validate() error {
	if c.Credentials.APIKey == "" || c.Credentials.Secret == "" || c.Credentials.Passphrase == "" {
		return fmt.Errorf("missing exchange credentials: set POLY_API_KEY, POLY_API_SECRET, POLY_API_PASSPHRASE")
	}
	return nil
}
