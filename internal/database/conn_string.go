package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/refdata-normalizer/internal/config"
)

// ApplicationName is reported to the server so price loads can be told
// apart in pg_stat_activity.
const ApplicationName = "refdata-normalizer"

const defaultSSLMode = "prefer"

// BuildConnString builds a PostgreSQL URL from the database section of
// the normalizer config. A configured URL is returned unchanged.
func BuildConnString(cfg config.DBConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}, "application_name": {ApplicationName}}.Encode(),
	}
	return u.String()
}

// Target describes the configured database without credentials, for
// logs and errors.
func Target(cfg config.DBConfig) string {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "database url"
		}
		return u.Host + u.Path
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + "/" + cfg.Name
}
