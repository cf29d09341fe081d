package pipeline

import (
	"github.com/rickgao/refdata-normalizer/internal/config"
	"github.com/rickgao/refdata-normalizer/internal/session"
)

// FromConfig derives the run and session configuration from a loaded config.
func FromConfig(cfg *config.NormalizerConfig) (Config, session.Config, error) {
	overrides, err := cfg.Request.OverrideSpec()
	if err != nil {
		return Config{}, session.Config{}, err
	}

	run := Config{
		SecuritiesTable: cfg.Database.SecuritiesTable,
		PricesTable:     cfg.Database.PricesTable,
		Fields:          cfg.Request.FieldSpec(),
		Overrides:       overrides,
	}

	sess := session.DefaultConfig()
	sess.Host = cfg.Service.Host
	sess.Port = cfg.Service.Port
	if cfg.Service.Path != "" {
		sess.Path = cfg.Service.Path
	}
	if cfg.Service.Service != "" {
		sess.Service = cfg.Service.Service
	}
	if cfg.Service.HandshakeTimeout > 0 {
		sess.HandshakeTimeout = cfg.Service.HandshakeTimeout
	}
	if cfg.Service.StartTimeout > 0 {
		sess.StartTimeout = cfg.Service.StartTimeout
	}
	if cfg.Service.WriteTimeout > 0 {
		sess.WriteTimeout = cfg.Service.WriteTimeout
	}
	sess.EventTimeout = cfg.Service.EventTimeout

	return run, sess, nil
}
