package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite    = "sqlite"
	DriverFirestore = "firestore"
)

type Config struct {
	Server struct {
		Address           string   `yaml:"address"`
		ReadTimeoutSec    int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSec   int      `yaml:"write_timeout_seconds"`
		SubmitPerMinute   float64  `yaml:"submit_per_minute"`
		SubmitBurst       int      `yaml:"submit_burst"`
		AllowedOrigins    []string `yaml:"allowed_origins"`
		MaxUploadMegabyte int      `yaml:"max_upload_megabytes"`
	} `yaml:"server"`

	Business BusinessConfig `yaml:"business"`

	Booking struct {
		MinAdvanceMinutes int `yaml:"min_advance_minutes"`
		MaxAdvanceDays    int `yaml:"max_advance_days"`
	} `yaml:"booking"`

	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"database"`

	Firebase struct {
		ProjectID       string `yaml:"project_id"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`

	Auth struct {
		// DevTokens maps static bearer tokens to uids for local runs without Firebase.
		DevTokens map[string]string `yaml:"dev_tokens"`
		Admins    []string          `yaml:"admins"`
	} `yaml:"auth"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Cloudinary struct {
		CloudName string `yaml:"cloud_name"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Folder    string `yaml:"folder"`
	} `yaml:"cloudinary"`

	Telegram struct {
		BotToken  string  `yaml:"bot_token"`
		Debug     bool    `yaml:"debug"`
		Managers  []int64 `yaml:"managers"`
		PerSecond float64 `yaml:"per_second"`
	} `yaml:"telegram"`

	GoogleSheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
	} `yaml:"google_sheets"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup BackupConfig `yaml:"backup"`

	Agenda struct {
		Enabled  bool   `yaml:"enabled"`
		Schedule string `yaml:"schedule"`
	} `yaml:"agenda"`

	HoursFile string `yaml:"hours_file"`
}

type BusinessConfig struct {
	Timezone            string `yaml:"timezone"`
	SlotIntervalMinutes int    `yaml:"slot_interval_minutes"`
	HorizonDays         int    `yaml:"horizon_days"`
}

type BackupConfig struct {
	Enabled bool `yaml:"enabled"`
	// Schedule is a standard five-field cron expression.
	Schedule      string `yaml:"schedule"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads the YAML config at path, loading .env first so that ${VAR}
// placeholders can come from it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/showroom.db"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == DriverSQLite {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverFirestore:
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverFirestore && c.Firebase.ProjectID == "" {
		return fmt.Errorf("firebase.project_id is required for the firestore driver")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("business.timezone: %w", err)
	}
	if c.Business.SlotIntervalMinutes < 0 || c.Business.HorizonDays < 0 {
		return fmt.Errorf("business: slot interval and horizon must not be negative")
	}
	return nil
}

// Location returns the dealership time zone, UTC when unset.
func (c *Config) Location() (*time.Location, error) {
	if c.Business.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Business.Timezone)
}

func (c *Config) SlotInterval() int {
	if c.Business.SlotIntervalMinutes <= 0 {
		return 60
	}
	return c.Business.SlotIntervalMinutes
}

func (c *Config) HorizonDays() int {
	if c.Business.HorizonDays <= 0 {
		return 30
	}
	return c.Business.HorizonDays
}

func (c *Config) BookingMinAdvance() time.Duration {
	if c.Booking.MinAdvanceMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute
}

func (c *Config) BookingMaxAdvanceDays() int {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 90
	}
	return c.Booking.MaxAdvanceDays
}

func (c *Config) ServerAddress() string {
	if c.Server.Address == "" {
		return ":8080"
	}
	return c.Server.Address
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSec) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.Server.WriteTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Server.WriteTimeoutSec) * time.Second
}

// SubmitRate returns the per-client booking submission rate in events per second.
func (c *Config) SubmitRate() (perSecond float64, burst int) {
	perMinute := c.Server.SubmitPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	burst = c.Server.SubmitBurst
	if burst <= 0 {
		burst = 3
	}
	return perMinute / 60, burst
}

func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMegabyte <= 0 {
		return 10 << 20
	}
	return int64(c.Server.MaxUploadMegabyte) << 20
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) HoursPath() string {
	if c.HoursFile == "" {
		return "configs/hours.yaml"
	}
	return c.HoursFile
}
