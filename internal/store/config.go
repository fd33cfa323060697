package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loykin/mealsmoke/internal/retry"
	"github.com/loykin/mealsmoke/internal/store/postgresql"
	"github.com/loykin/mealsmoke/internal/store/sqlite"
)

// Supported drivers. An empty driver disables the history store.
const (
	DriverNone       = ""
	DriverSqlite     = "sqlite"
	DriverPostgresql = "postgresql"
)

// Config selects and configures the history backend.
type Config struct {
	Driver           string            `mapstructure:"type"`
	TablePrefix      string            `mapstructure:"table_prefix"`
	SaveResponseBody bool              `mapstructure:"save_response_body"`
	SQLite           sqlite.Config     `mapstructure:"sqlite"`
	Postgres         postgresql.Config `mapstructure:"postgres"`
	Retry            *retry.Policy     `mapstructure:"retry"`
}

// Enabled reports whether runs should be recorded at all.
func (c Config) Enabled() bool {
	return NormalizeDriver(c.Driver) != DriverNone
}

// NormalizeDriver maps accepted aliases to a Driver constant.
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "", "none", "off":
		return DriverNone
	case "sqlite", "sqlite3":
		return DriverSqlite
	case "postgres", "postgresql", "pg":
		return DriverPostgresql
	default:
		return d
	}
}

// TableNames are the fully qualified history tables.
type TableNames struct {
	Runs  string
	Steps string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Tables derives table names from prefix, rejecting anything that is not a
// plain SQL identifier since names are interpolated into statements.
func Tables(prefix string) (TableNames, error) {
	prefix = strings.TrimSpace(prefix)
	tn := TableNames{Runs: prefix + "smoke_runs", Steps: prefix + "smoke_steps"}
	if !identRe.MatchString(tn.Runs) {
		return TableNames{}, fmt.Errorf("store: invalid table_prefix %q", prefix)
	}
	return tn, nil
}
