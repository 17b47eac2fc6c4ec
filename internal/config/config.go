// Package config handles application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
// It is treated as immutable once loaded: the environment and trainer
// receive it by value and never write back.
type Config struct {
	Symbol                string  `yaml:"symbol" json:"symbol"`
	Episodes              int     `yaml:"episodes" json:"episodes"`
	LookbackPeriod        int     `yaml:"lookback_period" json:"lookback_period"`
	MaxSteps              int     `yaml:"max_steps" json:"max_steps"`
	InitialEquity         float64 `yaml:"initial_equity" json:"initial_equity"`
	FeeRate               float64 `yaml:"fee_rate" json:"fee_rate"`
	LearningRate          float64 `yaml:"learning_rate" json:"learning_rate"`
	Gamma                 float64 `yaml:"gamma" json:"gamma"`
	Epsilon               float64 `yaml:"epsilon" json:"epsilon"`
	StateDim              int     `yaml:"state_dim" json:"state_dim"`
	ActionDim             int     `yaml:"action_dim" json:"action_dim"`
	EarlyStoppingPatience int     `yaml:"early_stopping_patience" json:"early_stopping_patience"`
	CheckpointInterval    int     `yaml:"checkpoint_interval" json:"checkpoint_interval"`
	MinImprovement        float64 `yaml:"min_improvement" json:"min_improvement"`
	ModelDir              string  `yaml:"model_dir" json:"model_dir"`

	Database DatabaseConfig `yaml:"database" json:"-"`
	CSV      CSVConfig      `yaml:"csv" json:"csv"`

	LogLevel string `yaml:"-" json:"-"` // Loaded from env or defaults
}

// DatabaseConfig holds connection settings for the market-data database.
type DatabaseConfig struct {
	Enabled  FlexBool `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     string   `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"password" json:"-"`
	Name     string   `yaml:"name"`
}

// CSVConfig holds file paths for CSV-based market data.
type CSVConfig struct {
	OHLCVPath   string `yaml:"ohlcv_path" json:"ohlcv_path"`
	FundingPath string `yaml:"funding_path" json:"funding_path"`
	VWAPPath    string `yaml:"vwap_path" json:"vwap_path"`
}

// DefaultConfig returns the built-in training defaults.
func DefaultConfig() *Config {
	return &Config{
		Symbol:                "BTCUSDT",
		Episodes:              500,
		LookbackPeriod:        20,
		MaxSteps:              500,
		InitialEquity:         10000,
		FeeRate:               0.00075,
		LearningRate:          0.0003,
		Gamma:                 0.99,
		Epsilon:               0.2,
		StateDim:              17,
		ActionDim:             4,
		EarlyStoppingPatience: 20,
		CheckpointInterval:    10,
		MinImprovement:        0.01,
		ModelDir:              "ml_models",
		LogLevel:              "info",
	}
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables. A missing file is not an error: the
// training CLI takes no flags, so the config file is optional and the
// defaults must be usable on their own.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	file, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Load sensitive data and overrides from environment variables
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		cfg.Database.Port = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks critical configuration values.
func (c *Config) Validate() error {
	if c.LookbackPeriod <= 0 {
		return fmt.Errorf("lookback_period must be positive, got %d", c.LookbackPeriod)
	}
	if c.InitialEquity <= 0 {
		return fmt.Errorf("initial_equity must be positive, got %f", c.InitialEquity)
	}
	if c.FeeRate < 0 {
		return fmt.Errorf("fee_rate must not be negative, got %f", c.FeeRate)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1], got %f", c.Gamma)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %f", c.Epsilon)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

// DSN builds the connection string for the market-data database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		d.User, d.Password, d.Host, d.Port, d.Name)
}
