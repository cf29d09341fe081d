package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// identPattern matches a plain or schema-qualified SQL identifier.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks that all required fields are set and values are valid.
func (c *NormalizerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Service.Host == "" {
		return errors.New("service.host is required")
	}
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port must be between 1 and 65535, got %d", c.Service.Port)
	}
	if c.Service.Service == "" {
		return errors.New("service.service is required")
	}
	if c.Service.EventTimeout < 0 {
		return errors.New("service.event_timeout must be >= 0")
	}

	if err := c.Database.DBConfig.validate("database"); err != nil {
		return err
	}
	if !identPattern.MatchString(c.Database.SecuritiesTable) {
		return fmt.Errorf("database.securities_table %q is not a valid identifier", c.Database.SecuritiesTable)
	}
	if !identPattern.MatchString(c.Database.PricesTable) {
		return fmt.Errorf("database.prices_table %q is not a valid identifier", c.Database.PricesTable)
	}

	if _, _, err := c.Schedule.Clock(); err != nil {
		return err
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}

	if len(c.Request.Fields) == 0 && len(c.Request.BulkFields) == 0 {
		return errors.New("request.fields is required")
	}
	if _, err := c.Request.OverrideSpec(); err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL == "" {
		if db.Host == "" {
			return fmt.Errorf("%s.host is required", prefix)
		}
		if db.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if db.User == "" {
			return fmt.Errorf("%s.user is required", prefix)
		}
		if db.Password == "" {
			return fmt.Errorf("%s.password is required", prefix)
		}
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
