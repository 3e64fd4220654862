package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Dialer struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"dialer"`
	Poll struct {
		StatusIntervalSec   int `yaml:"status_interval_sec"`
		SettingsIntervalSec int `yaml:"settings_interval_sec"`
		MaxFailures         int `yaml:"max_failures"`
	} `yaml:"poll"`
	Throughput struct {
		DialsPerHour   int     `yaml:"dials_per_hour"`
		MinutesPerCall float64 `yaml:"minutes_per_call"`
		CostPerMinute  int64   `yaml:"cost_per_minute"` // minor units
	} `yaml:"throughput"`
	Plan struct {
		MaxLeadTarget int `yaml:"max_lead_target"`
	} `yaml:"plan"`
	Leads struct {
		MinAgeHours int `yaml:"min_age_hours"` // 0 disables the age gate
	} `yaml:"leads"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("DIALER_BASE_URL"); v != "" {
		cfg.Dialer.BaseURL = v
	}
	if v := os.Getenv("DIALER_API_KEY"); v != "" {
		cfg.Dialer.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("STATUS_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Poll.StatusIntervalSec = n
		}
	}
	if v := os.Getenv("SETTINGS_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Poll.SettingsIntervalSec = n
		}
	}
	if v := os.Getenv("MAX_LEAD_TARGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Plan.MaxLeadTarget = n
		}
	}

	// Defaults
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/governor.db"
	}
	if cfg.Poll.StatusIntervalSec == 0 {
		cfg.Poll.StatusIntervalSec = 5
	}
	if cfg.Poll.SettingsIntervalSec == 0 {
		cfg.Poll.SettingsIntervalSec = 60
	}
	if cfg.Poll.MaxFailures == 0 {
		cfg.Poll.MaxFailures = 3
	}
	if cfg.Throughput.DialsPerHour == 0 {
		cfg.Throughput.DialsPerHour = 60
	}
	if cfg.Throughput.MinutesPerCall == 0 {
		cfg.Throughput.MinutesPerCall = 3
	}
	if cfg.Throughput.CostPerMinute == 0 {
		cfg.Throughput.CostPerMinute = 15
	}
	if cfg.Plan.MaxLeadTarget == 0 {
		cfg.Plan.MaxLeadTarget = 500
	}

	return cfg, nil
}

// StatusInterval returns the status poll interval as a duration.
func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Poll.StatusIntervalSec) * time.Second
}

// SettingsInterval returns the settings poll interval as a duration.
func (c *Config) SettingsInterval() time.Duration {
	return time.Duration(c.Poll.SettingsIntervalSec) * time.Second
}

// MinLeadAge returns the configured lead age gate (0 disables it).
func (c *Config) MinLeadAge() time.Duration {
	return time.Duration(c.Leads.MinAgeHours) * time.Hour
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Poll.StatusIntervalSec <= 0 {
		return fmt.Errorf("poll.status_interval_sec must be positive")
	}
	if c.Poll.SettingsIntervalSec < c.Poll.StatusIntervalSec {
		return fmt.Errorf("poll.settings_interval_sec must not be shorter than poll.status_interval_sec")
	}
	if c.Throughput.DialsPerHour <= 0 {
		return fmt.Errorf("throughput.dials_per_hour must be positive")
	}
	if c.Throughput.MinutesPerCall <= 0 {
		return fmt.Errorf("throughput.minutes_per_call must be positive")
	}
	if c.Throughput.CostPerMinute <= 0 {
		return fmt.Errorf("throughput.cost_per_minute must be positive")
	}
	if c.Plan.MaxLeadTarget <= 0 {
		return fmt.Errorf("plan.max_lead_target must be positive")
	}
	if c.Leads.MinAgeHours < 0 {
		return fmt.Errorf("leads.min_age_hours must not be negative")
	}
	return nil
}
