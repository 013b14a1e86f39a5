package config

import "time"

// ServerConfig represents the receiver configuration
type ServerConfig struct {
	ReceiverType      string
	ListenAddress     string
	WebhookPath       string
	GinMode           string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	MaxBodyBytes      int64
}

// MailgunConfig represents the relay signature configuration
type MailgunConfig struct {
	SigningKey string
}

// ClassifierConfig represents the subject classifier configuration
type ClassifierConfig struct {
	SubjectMarkers []string
}

// LabelsConfig holds the label synonyms for each logical field
type LabelsConfig struct {
	ReservationID []string
	Name          []string
	VisitDateTime []string
	Duration      []string
	Staff         []string
	Menu          []string
	Remarks       []string
	Phone         []string
	Email         []string
}

// ExtractionConfig represents the extractor configuration
type ExtractionConfig struct {
	Timezone           string
	BlockMarkers       string
	WindowBefore       int
	WindowAfter        int
	MinDurationMinutes int
	MaxDurationMinutes int
	NoStaffValues      []string
	EmptyRemarkValues  []string
	Labels             LabelsConfig
}

// SinkConfig represents the reservation store configuration
type SinkConfig struct {
	Type             string
	SalonID          int64
	IdempotencyTTL   time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	PostgresDSN      string
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readHeaderTimeout, err := c.GetDuration("server.read_header_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	shutdownTimeout, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		ReceiverType:      c.GetString("server.receiver_type"),
		ListenAddress:     c.GetString("server.listen_address"),
		WebhookPath:       c.GetString("server.webhook_path"),
		GinMode:           c.GetString("server.gin_mode"),
		ReadHeaderTimeout: readHeaderTimeout,
		ShutdownTimeout:   shutdownTimeout,
		MaxBodyBytes:      c.GetInt64("server.max_body_bytes"),
	}, nil
}

// GetMailgun returns the Mailgun configuration
func (c *Config) GetMailgun() MailgunConfig {
	return MailgunConfig{
		SigningKey: c.GetString("mailgun.signing_key"),
	}
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		SubjectMarkers: c.GetStringSlice("classifier.subject_markers"),
	}
}

// GetExtraction returns the extraction configuration
func (c *Config) GetExtraction() ExtractionConfig {
	return ExtractionConfig{
		Timezone:           c.GetString("extraction.timezone"),
		BlockMarkers:       c.GetString("extraction.block_markers"),
		WindowBefore:       c.GetInt("extraction.window_before"),
		WindowAfter:        c.GetInt("extraction.window_after"),
		MinDurationMinutes: c.GetInt("extraction.min_duration_minutes"),
		MaxDurationMinutes: c.GetInt("extraction.max_duration_minutes"),
		NoStaffValues:      c.GetStringSlice("extraction.no_staff_values"),
		EmptyRemarkValues:  c.GetStringSlice("extraction.empty_remark_values"),
		Labels: LabelsConfig{
			ReservationID: c.GetStringSlice("extraction.labels.reservation_id"),
			Name:          c.GetStringSlice("extraction.labels.name"),
			VisitDateTime: c.GetStringSlice("extraction.labels.visit_datetime"),
			Duration:      c.GetStringSlice("extraction.labels.duration"),
			Staff:         c.GetStringSlice("extraction.labels.staff"),
			Menu:          c.GetStringSlice("extraction.labels.menu"),
			Remarks:       c.GetStringSlice("extraction.labels.remarks"),
			Phone:         c.GetStringSlice("extraction.labels.phone"),
			Email:         c.GetStringSlice("extraction.labels.email"),
		},
	}
}

// GetSink returns the reservation sink configuration
func (c *Config) GetSink() (SinkConfig, error) {
	ttl, err := c.GetPositiveDuration("sink.idempotency_ttl")
	if err != nil {
		return SinkConfig{}, err
	}
	cleanupFreq, err := c.GetPositiveDuration("sink.cleanup_frequency")
	if err != nil {
		return SinkConfig{}, err
	}

	return SinkConfig{
		Type:             c.GetString("sink.type"),
		SalonID:          c.GetInt64("sink.salon_id"),
		IdempotencyTTL:   ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("sink.sqlite_path"),
		MySQLDSN:         c.GetString("sink.mysql_dsn"),
		PostgresDSN:      c.GetString("sink.postgres_dsn"),
	}, nil
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
