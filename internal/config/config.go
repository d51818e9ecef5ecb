// Package config centralises runtime configuration for the market-making
// engine: the daemon's environment/connection settings and the
// deeply-merged strategy option tree.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment identifies the runtime environment the daemon operates in.
type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Exchange names a configured exchange account.
type Exchange string

// Credentials captures API credentials for an exchange account.
type Credentials struct {
	APIKey    string `yaml:"apiKey"`
	APISecret string `yaml:"apiSecret"`
}

// ExchangeSettings aggregates one account's connection configuration.
type ExchangeSettings struct {
	ID          string            `yaml:"id"`
	REST        map[string]string `yaml:"rest"`
	Credentials Credentials       `yaml:"credentials"`
	HTTPTimeout time.Duration     `yaml:"httpTimeout"`
}

// Intervals configures how often the daemon's background jobs run, as
// period literals (see internal/timeutil.PeriodToMs): "2s", "5m", "1h".
type Intervals struct {
	Orchestrator string `yaml:"orchestrator"` // job poll interval, default "2s"
	Allocation   string `yaml:"allocation"`   // portfolio reselection period, default "1h"
	AgentRun     string `yaml:"agentRun"`      // per-agent update-cycle period, default "5m"
}

func (i Intervals) withDefaults() Intervals {
	if strings.TrimSpace(i.Orchestrator) == "" {
		i.Orchestrator = "2s"
	}
	if strings.TrimSpace(i.Allocation) == "" {
		i.Allocation = "1h"
	}
	if strings.TrimSpace(i.AgentRun) == "" {
		i.AgentRun = "5m"
	}
	return i
}

// AppConfig is the daemon's top-level configuration, sourced from YAML and
// overridden by environment variables (NODE_ENV, PORT, the database
// connection string, and the exchange API key).
type AppConfig struct {
	Environment Environment                   `yaml:"environment"`
	Addr        string                        `yaml:"addr"`
	DatabaseURL string                        `yaml:"databaseUrl"`
	Exchanges   map[Exchange]ExchangeSettings `yaml:"exchanges"`
	Strategy    StrategyOptions               `yaml:"strategy"`
	Intervals   Intervals                     `yaml:"intervals"`
}

// Load reads an AppConfig from a YAML file at path, then applies
// environment-variable overrides, then validates.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyEnvOverrides()
	cfg.Intervals = cfg.Intervals.withDefaults()
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("NODE_ENV")); v != "" {
		c.Environment = Environment(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		c.Addr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		c.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EXCHANGE_API_KEY")); v != "" {
		for name, settings := range c.Exchanges {
			settings.Credentials.APIKey = v
			c.Exchanges[name] = settings
		}
	}
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr required")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("databaseUrl required")
	}
	return nil
}

// PortFromAddr extracts the numeric port from an addr of the form ":NNNN",
// or 0 if it cannot be parsed.
func PortFromAddr(addr string) int {
	parts := strings.Split(addr, ":")
	p, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return p
}
