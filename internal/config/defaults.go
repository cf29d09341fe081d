package config

import (
	"time"

	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

// Default values for optional configuration fields.
const (
	DefaultServiceHost      = "localhost"
	DefaultServicePort      = 8194
	DefaultServicePath      = "/"
	DefaultServiceName      = "//blp/refdata"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultStartTimeout     = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultSecuritiesTable  = "securities"
	DefaultPricesTable      = "prices"
	DefaultScheduleTime     = "18:00"
	DefaultTimezone         = "Local"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultLogOutput        = "stdout"
	DefaultLogMaxSizeMB     = 100
	DefaultLogMaxBackups    = 7
	DefaultLogMaxAgeDays    = 30
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
)

func (c *NormalizerConfig) applyDefaults() {
	// Service defaults
	if c.Service.Host == "" {
		c.Service.Host = DefaultServiceHost
	}
	if c.Service.Port == 0 {
		c.Service.Port = DefaultServicePort
	}
	if c.Service.Path == "" {
		c.Service.Path = DefaultServicePath
	}
	if c.Service.Service == "" {
		c.Service.Service = DefaultServiceName
	}
	if c.Service.HandshakeTimeout == 0 {
		c.Service.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Service.StartTimeout == 0 {
		c.Service.StartTimeout = DefaultStartTimeout
	}
	if c.Service.WriteTimeout == 0 {
		c.Service.WriteTimeout = DefaultWriteTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.DBConfig)
	if c.Database.SecuritiesTable == "" {
		c.Database.SecuritiesTable = DefaultSecuritiesTable
	}
	if c.Database.PricesTable == "" {
		c.Database.PricesTable = DefaultPricesTable
	}

	// Schedule defaults
	if c.Schedule.Time == "" {
		c.Schedule.Time = DefaultScheduleTime
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = DefaultTimezone
	}

	// Request defaults: an empty field list means the standard set.
	if len(c.Request.Fields) == 0 && len(c.Request.BulkFields) == 0 {
		fields := refdata.DefaultFieldSpec()
		c.Request.Fields = fields.Scalar
		c.Request.BulkFields = fields.Bulk
	}
	if c.Request.Overrides == nil {
		for _, o := range refdata.DefaultChainOverrides() {
			var v any = o.Value.String()
			if o.Value.IsInt() {
				v = int(o.Value.Int64())
			}
			c.Request.Overrides = append(c.Request.Overrides, OverrideConfig{FieldID: o.FieldID, Value: v})
		}
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
