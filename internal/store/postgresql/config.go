package postgresql

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Config selects the postgres database. DSN wins over the individual fields.
type Config struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ToDSN returns a URL accepted by the pgx stdlib driver, or "" when neither
// a DSN nor a host is configured.
func (c Config) ToDSN() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return ""
	}
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	ssl := strings.TrimSpace(c.SSLMode)
	if ssl == "" {
		ssl = defaultSSLMode
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(strings.TrimSpace(c.User), c.Password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + strings.TrimSpace(c.DBName),
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}
