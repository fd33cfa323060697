package sqlite

import (
	"fmt"
	"strings"
)

// DefaultPath is the history database created next to the working directory.
const DefaultPath = "mealsmoke.db"

const busyTimeoutMS = 5000

// Config selects the sqlite database file.
type Config struct {
	Path string `mapstructure:"path"`
	// DSN overrides Path when set.
	DSN string `mapstructure:"dsn"`
}

// ToDSN returns the modernc.org/sqlite data source name.
func (c Config) ToDSN() string {
	if dsn := strings.TrimSpace(c.DSN); dsn != "" {
		return dsn
	}
	path := strings.TrimSpace(c.Path)
	if path == "" {
		path = DefaultPath
	}
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMS)
}
