package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/extract"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mail-ingest/")
	v.AddConfigPath("$HOME/.mail-ingest")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration from an explicit file path
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)

	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.receiver_type", "webhook")
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.webhook_path", "/api/webhooks/mail/hotpepper")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.max_body_bytes", 10<<20)

	// Mailgun defaults
	v.SetDefault("mailgun.signing_key", "")

	// Classifier defaults
	v.SetDefault("classifier.subject_markers", []string{
		"HOT PEPPER", "ホットペッパー", "hotpepper", "SALON BOARD", "サロンボード",
	})

	// Extraction defaults
	opts := extract.DefaultOptions()
	v.SetDefault("extraction.timezone", "Asia/Tokyo")
	v.SetDefault("extraction.block_markers", opts.BlockMarkers)
	v.SetDefault("extraction.window_before", opts.WindowBefore)
	v.SetDefault("extraction.window_after", opts.WindowAfter)
	v.SetDefault("extraction.min_duration_minutes", opts.MinDuration)
	v.SetDefault("extraction.max_duration_minutes", opts.MaxDuration)
	v.SetDefault("extraction.no_staff_values", opts.NoStaffValues)
	v.SetDefault("extraction.empty_remark_values", opts.EmptyRemarkValues)
	v.SetDefault("extraction.labels.reservation_id", opts.Labels.ReservationID)
	v.SetDefault("extraction.labels.name", opts.Labels.Name)
	v.SetDefault("extraction.labels.visit_datetime", opts.Labels.VisitDateTime)
	v.SetDefault("extraction.labels.duration", opts.Labels.Duration)
	v.SetDefault("extraction.labels.staff", opts.Labels.Staff)
	v.SetDefault("extraction.labels.menu", opts.Labels.Menu)
	v.SetDefault("extraction.labels.remarks", opts.Labels.Remarks)
	v.SetDefault("extraction.labels.phone", opts.Labels.Phone)
	v.SetDefault("extraction.labels.email", opts.Labels.Email)

	// Sink defaults
	v.SetDefault("sink.type", "memory")
	v.SetDefault("sink.salon_id", 1)
	v.SetDefault("sink.idempotency_ttl", "720h")
	v.SetDefault("sink.cleanup_frequency", "1h")
	v.SetDefault("sink.sqlite_path", "/data/reservations.db")
	v.SetDefault("sink.mysql_dsn", "user:password@tcp(localhost:3306)/salon")
	v.SetDefault("sink.postgres_dsn", "host=localhost user=postgres password=postgres dbname=salon port=5432 sslmode=disable")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetPositiveDuration is GetDuration for keys that must be greater than zero
func (c *Config) GetPositiveDuration(key string) (time.Duration, error) {
	d, err := c.GetDuration(key)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
