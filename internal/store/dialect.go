package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"cdrcli/pkg/contracts/domain"
)

// Supported database/sql driver names
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "pgx"
	DriverSQLite    = "sqlite"
)

// Dialect isolates the SQL differences between the supported engines
type Dialect interface {
	// Name returns the database/sql driver name
	Name() string

	// QuoteIdent quotes a single identifier
	QuoteIdent(name string) string

	// Placeholder returns the bind marker for the n-th (1-based) argument
	Placeholder(n int) string

	// DropTableIfExists returns a statement dropping the quoted table when present
	DropTableIfExists(quoted string) (string, []any)

	// TimeColumnType and TextColumnType are the staging column types
	TimeColumnType() string
	TextColumnType() string

	// Length and TimeOfDay wrap a column expression. Length ignores
	// trailing spaces on every backend, the way SQL Server's LEN does.
	Length(expr string) string
	TimeOfDay(expr string) string

	// BindTime converts a timestamp to the driver bind value
	BindTime(t time.Time) any
}

// DialectFor returns the dialect for a driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLServer:
		return sqlServerDialect{}, nil
	case DriverPostgres:
		return postgresDialect{}, nil
	case DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// QuoteQualified quotes each dot separated part of a table name such as dbo.Member
func QuoteQualified(d Dialect, name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = d.QuoteIdent(part)
	}
	return strings.Join(parts, ".")
}

func formatTime(t time.Time) any {
	return t.Format(domain.TimestampLayout)
}

type sqlServerDialect struct{}

func (sqlServerDialect) Name() string { return DriverSQLServer }

func (sqlServerDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (sqlServerDialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (sqlServerDialect) DropTableIfExists(quoted string) (string, []any) {
	return "IF OBJECT_ID(@p1, N'U') IS NOT NULL DROP TABLE " + quoted, []any{quoted}
}

func (sqlServerDialect) TimeColumnType() string { return "DATETIME2" }
func (sqlServerDialect) TextColumnType() string { return "NVARCHAR(50)" }

func (sqlServerDialect) Length(expr string) string { return "LEN(" + expr + ")" }

// style 108 is hh:mi:ss
func (sqlServerDialect) TimeOfDay(expr string) string {
	return "CONVERT(CHAR(8), " + expr + ", 108)"
}

func (sqlServerDialect) BindTime(t time.Time) any { return formatTime(t) }

type postgresDialect struct{}

func (postgresDialect) Name() string { return DriverPostgres }

func (postgresDialect) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) DropTableIfExists(quoted string) (string, []any) {
	return "DROP TABLE IF EXISTS " + quoted, nil
}

func (postgresDialect) TimeColumnType() string { return "TIMESTAMP" }
func (postgresDialect) TextColumnType() string { return "VARCHAR(50)" }

func (postgresDialect) Length(expr string) string { return "LENGTH(RTRIM(" + expr + "))" }

func (postgresDialect) TimeOfDay(expr string) string {
	return "TO_CHAR(" + expr + ", 'HH24:MI:SS')"
}

func (postgresDialect) BindTime(t time.Time) any { return t }

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DriverSQLite }

func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) DropTableIfExists(quoted string) (string, []any) {
	return "DROP TABLE IF EXISTS " + quoted, nil
}

func (sqliteDialect) TimeColumnType() string { return "DATETIME" }
func (sqliteDialect) TextColumnType() string { return "TEXT" }

func (sqliteDialect) Length(expr string) string { return "LENGTH(RTRIM(" + expr + "))" }

func (sqliteDialect) TimeOfDay(expr string) string {
	return "strftime('%H:%M:%S', " + expr + ")"
}

// timestamps are stored as canonical text so strftime can read them back
func (sqliteDialect) BindTime(t time.Time) any { return formatTime(t) }
