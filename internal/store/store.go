// Package store owns the relational side of a CDR run: the pinned
// connection, the staging relation, the no-answer correlation query and the
// append into the permanent ledger.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	apperrors "cdrcli/internal/errors"
)

// TableNames names the permanent tables a run reads from and writes to
type TableNames struct {
	Ledger string
	Member string
	Staff  string
}

// DefaultTableNames returns the production table names
func DefaultTableNames() TableNames {
	return TableNames{Ledger: "CDR", Member: "Member", Staff: "Staff"}
}

// ConnInfo describes how to reach the database
type ConnInfo struct {
	Driver   string
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DSN builds the driver specific data source name
func (c ConnInfo) DSN() (string, error) {
	switch c.Driver {
	case DriverSQLServer:
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.User, c.Password),
			Host:     hostPort(c.Host, c.Port),
			RawQuery: url.Values{"database": {c.Database}}.Encode(),
		}
		return u.String(), nil
	case DriverPostgres:
		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   hostPort(c.Host, c.Port),
			Path:   "/" + c.Database,
		}
		return u.String(), nil
	case DriverSQLite:
		if c.Database == "" {
			return "", fmt.Errorf("sqlite database path is empty")
		}
		return c.Database + "?_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported driver %q", c.Driver)
	}
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

// DB wraps a database/sql pool with the dialect for its driver
type DB struct {
	db      *sql.DB
	dialect Dialect
	tables  TableNames
	logger  *slog.Logger
}

// Open opens and pings the database described by info
func Open(ctx context.Context, info ConnInfo, tables TableNames, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "store"))

	dialect, err := DialectFor(info.Driver)
	if err != nil {
		return nil, apperrors.NewConnectionError("select dialect", err)
	}
	dsn, err := info.DSN()
	if err != nil {
		return nil, apperrors.NewConnectionError("build dsn", err)
	}

	db, err := sql.Open(info.Driver, dsn)
	if err != nil {
		return nil, apperrors.NewConnectionError(fmt.Sprintf("open %s connection", info.Driver), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.NewConnectionError(fmt.Sprintf("ping %s at %s", info.Driver, hostPort(info.Host, info.Port)), err)
	}

	logger.InfoContext(ctx, "database_connected",
		slog.String("driver", info.Driver),
		slog.String("host", info.Host),
		slog.String("database", info.Database))

	return &DB{db: db, dialect: dialect, tables: tables, logger: logger}, nil
}

// Dialect returns the SQL dialect of the pool
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Session pins a single connection for the duration of one run
func (d *DB) Session(ctx context.Context) (*Session, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, apperrors.NewConnectionError("acquire connection", err)
	}
	return &Session{
		conn:    conn,
		dialect: d.dialect,
		tables:  d.tables,
		logger:  d.logger,
	}, nil
}

// Close closes the pool
func (d *DB) Close() error {
	return d.db.Close()
}

// Session is a run scoped connection. It is not safe for concurrent use.
type Session struct {
	conn    *sql.Conn
	dialect Dialect
	tables  TableNames
	logger  *slog.Logger
}

// Dialect returns the session dialect
func (s *Session) Dialect() Dialect {
	return s.dialect
}

// Close returns the pinned connection to the pool
func (s *Session) Close() error {
	return s.conn.Close()
}

// CountRows returns the number of rows in the quoted table
func (s *Session) CountRows(ctx context.Context, quoted string) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// placeholders renders n bind markers starting at position start
func (s *Session) placeholders(start, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.dialect.Placeholder(start + i)
	}
	return out
}
