package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Mail transports
const (
	TransportSMTP  = "smtp"
	TransportGmail = "gmail"
	TransportSES   = "ses"
)

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL      string `yaml:"url" validate:"required"`
	MaxConns int32  `yaml:"maxConns,omitempty" validate:"omitempty,min=1"`
}

// HTTPConfig holds the API server settings
type HTTPConfig struct {
	Addr           string `yaml:"addr" validate:"required"`
	RequestTimeout string `yaml:"requestTimeout,omitempty"`
}

// SMTPConfig holds SMTP credentials. Leaving host or username empty puts the
// transport in simulate mode.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// MailConfig selects and configures the mail transport
type MailConfig struct {
	Transport string     `yaml:"transport" validate:"required,oneof=smtp gmail ses"`
	From      string     `yaml:"from" validate:"required,email"`
	FromName  string     `yaml:"fromName,omitempty"`
	Timeout   string     `yaml:"timeout,omitempty"`
	Location  string     `yaml:"location,omitempty"`
	SMTP      SMTPConfig `yaml:"smtp,omitempty"`
	SESRegion string     `yaml:"sesRegion,omitempty"`
}

// RemindersConfig controls the sweep and the delayed reminder queue
type RemindersConfig struct {
	SweepInterval  string `yaml:"sweepInterval,omitempty"`
	LookAheadHours int    `yaml:"lookAheadHours,omitempty" validate:"omitempty,min=1"`
	DrainInterval  string `yaml:"drainInterval,omitempty"`
	BatchSize      int64  `yaml:"batchSize,omitempty" validate:"omitempty,min=1"`
	RetryDelay     string `yaml:"retryDelay,omitempty"`
}

// RedisConfig enables the delayed reminder queue when URL is set
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`
	Key string `yaml:"key,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database" validate:"required"`
	HTTP      HTTPConfig      `yaml:"http" validate:"required"`
	Mail      MailConfig      `yaml:"mail" validate:"required"`
	Reminders RemindersConfig `yaml:"reminders,omitempty"`
	Redis     RedisConfig     `yaml:"redis,omitempty"`
}

// Defaults applied by the accessors below when a value is not configured
const (
	defaultRequestTimeout = 10 * time.Second
	defaultMailTimeout    = 15 * time.Second
	defaultSweepInterval  = 15 * time.Minute
	defaultDrainInterval  = time.Minute
	defaultRetryDelay     = 10 * time.Minute
	defaultLookAheadHours = 48
	defaultBatchSize      = 100
	defaultMaxConns       = 10
	defaultLocation       = "Europe/Rome"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from booking_config.yaml
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" looks for "booking_config.test.yaml".
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct, the duration strings and the time zone
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	durations := map[string]string{
		"http.requestTimeout":     cfg.HTTP.RequestTimeout,
		"mail.timeout":            cfg.Mail.Timeout,
		"reminders.sweepInterval": cfg.Reminders.SweepInterval,
		"reminders.drainInterval": cfg.Reminders.DrainInterval,
		"reminders.retryDelay":    cfg.Reminders.RetryDelay,
	}
	for field, value := range durations {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration in %s: %w", field, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid duration in %s: must be positive", field)
		}
	}

	if cfg.Mail.Location != "" {
		if _, err := time.LoadLocation(cfg.Mail.Location); err != nil {
			return fmt.Errorf("invalid mail.location: %w", err)
		}
	}

	return nil
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// RequestTimeout bounds each HTTP request
func (c *Config) RequestTimeout() time.Duration {
	return durationOr(c.HTTP.RequestTimeout, defaultRequestTimeout)
}

// MailTimeout bounds each mail transport call
func (c *Config) MailTimeout() time.Duration {
	return durationOr(c.Mail.Timeout, defaultMailTimeout)
}

// SweepInterval is how often the reminder sweep runs
func (c *Config) SweepInterval() time.Duration {
	return durationOr(c.Reminders.SweepInterval, defaultSweepInterval)
}

// DrainInterval is how often the delayed reminder queue is drained
func (c *Config) DrainInterval() time.Duration {
	return durationOr(c.Reminders.DrainInterval, defaultDrainInterval)
}

// RetryDelay is how long a failed scheduled reminder waits
func (c *Config) RetryDelay() time.Duration {
	return durationOr(c.Reminders.RetryDelay, defaultRetryDelay)
}

// LookAhead is the sweep's query window
func (c *Config) LookAhead() time.Duration {
	hours := c.Reminders.LookAheadHours
	if hours <= 0 {
		hours = defaultLookAheadHours
	}
	return time.Duration(hours) * time.Hour
}

// BatchSize caps the reminders claimed per drain
func (c *Config) BatchSize() int64 {
	if c.Reminders.BatchSize <= 0 {
		return defaultBatchSize
	}
	return c.Reminders.BatchSize
}

// MaxConns caps the Postgres pool
func (c *Config) MaxConns() int32 {
	if c.Database.MaxConns <= 0 {
		return defaultMaxConns
	}
	return c.Database.MaxConns
}

// MailLocation is the time zone used to print event times in emails
func (c *Config) MailLocation() *time.Location {
	name := c.Mail.Location
	if name == "" {
		name = defaultLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// findConfigFile searches for the config file of an environment
func findConfigFile(env string) (string, error) {
	name := "booking_config.yaml"
	if env != "" {
		name = "booking_config." + env + ".yaml"
	}
	return findFile(name)
}

// findFile looks for name in the current directory, then in the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
