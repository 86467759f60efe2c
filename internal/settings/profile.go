// Package settings resolves the database connection profile a run uses,
// either from explicit configuration or from the shared settings cache.
package settings

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"cdrcli/internal/config"
	apperrors "cdrcli/internal/errors"
	"cdrcli/internal/store"
)

// Profile is one named database connection
type Profile struct {
	Name     string `json:"name" validate:"required"`
	Driver   string `json:"driver" validate:"required,oneof=sqlserver pgx sqlite"`
	Host     string `json:"host" validate:"required_unless=Driver sqlite"`
	Port     int    `json:"port" validate:"min=0,max=65535"`
	Database string `json:"database" validate:"required"`
	User     string `json:"user"`
	Password string `json:"-"`
}

var validate = validator.New()

// Validate checks that the profile is usable for a connection
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("profile %q is incomplete", p.Name), err)
	}
	return nil
}

// Masked returns a copy safe to print
func (p Profile) Masked() Profile {
	if p.User != "" {
		p.User = "*"
	}
	if p.Password != "" {
		p.Password = "*"
	}
	return p
}

// LogValue keeps credentials out of structured logs
func (p Profile) LogValue() slog.Value {
	m := p.Masked()
	return slog.GroupValue(
		slog.String("name", m.Name),
		slog.String("driver", m.Driver),
		slog.String("host", m.Host),
		slog.Int("port", m.Port),
		slog.String("database", m.Database),
		slog.String("user", m.User),
	)
}

// ConnInfo converts the profile for the store package
func (p Profile) ConnInfo() store.ConnInfo {
	return store.ConnInfo{
		Driver:   p.Driver,
		Host:     p.Host,
		Port:     p.Port,
		Database: p.Database,
		User:     p.User,
		Password: p.Password,
	}
}

// FromConfig builds a profile from explicit database settings
func FromConfig(name string, db config.DatabaseConfig) Profile {
	return Profile{
		Name:     name,
		Driver:   db.Driver,
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Name,
		User:     db.User,
		Password: db.Password,
	}
}

// NormalizeDriver maps the cache's DB_Type column, which historically holds
// ODBC driver names such as "ODBC Driver 17 for SQL Server", to a
// database/sql driver name.
func NormalizeDriver(dbType string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(dbType))
	switch {
	case strings.Contains(t, "sql server"), t == "sqlserver", t == "mssql":
		return store.DriverSQLServer, nil
	case strings.Contains(t, "postgres"), t == "pgx":
		return store.DriverPostgres, nil
	case strings.Contains(t, "sqlite"):
		return store.DriverSQLite, nil
	default:
		return "", apperrors.NewConfigError(fmt.Sprintf("unsupported database type %q", dbType), nil)
	}
}
