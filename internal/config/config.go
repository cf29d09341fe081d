package config

import "time"

// NormalizerConfig is the root configuration for a normalizer instance.
type NormalizerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Request  RequestConfig  `yaml:"request"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this normalizer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServiceConfig holds the reference-data service endpoint.
type ServiceConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	Path             string        `yaml:"path"`    // WebSocket path on the gateway
	Service          string        `yaml:"service"` // e.g. //blp/refdata
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	StartTimeout     time.Duration `yaml:"start_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	EventTimeout     time.Duration `yaml:"event_timeout"` // 0 waits indefinitely
}

// DatabaseConfig holds the store connection and table names.
type DatabaseConfig struct {
	DBConfig        `yaml:",inline"`
	SecuritiesTable string `yaml:"securities_table"`
	PricesTable     string `yaml:"prices_table"`
}

// DBConfig holds a single database connection.
// URL, when set, takes precedence over the discrete fields.
type DBConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ScheduleConfig holds the daily trigger settings.
type ScheduleConfig struct {
	Time       string `yaml:"time"`     // HH:MM, 24-hour
	Timezone   string `yaml:"timezone"` // IANA name, "Local" or "UTC"
	RunOnStart bool   `yaml:"run_on_start"`
}

// RequestConfig holds the fields and overrides sent with each request.
type RequestConfig struct {
	Fields     []string         `yaml:"fields"`
	BulkFields []string         `yaml:"bulk_fields"`
	Overrides  []OverrideConfig `yaml:"overrides"`
}

// OverrideConfig is one override directive. Value is a string or an integer.
type OverrideConfig struct {
	FieldID string `yaml:"field_id"`
	Value   any    `yaml:"value"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text, json
	Output     string `yaml:"output"` // stdout, stderr, or a file path
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig holds health and Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
