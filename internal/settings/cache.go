package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	apperrors "cdrcli/internal/errors"
)

const lookupSQL = `SELECT DB_Type, Host, Port, DB_Name, DB_ID, DB_PW FROM DBCON WHERE Name = ?`

// Cache is the embedded settings database holding the DBCON table
type Cache struct {
	path   string
	logger *slog.Logger
}

// NewCache returns a cache backed by the file at path
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{path: path, logger: logger.With(slog.String("component", "settings_cache"))}
}

// Path returns the cache file location
func (c *Cache) Path() string { return c.path }

// Exists reports whether the cache file is present
func (c *Cache) Exists() bool {
	info, err := os.Stat(c.path)
	return err == nil && !info.IsDir()
}

// Lookup reads the named connection profile
func (c *Cache) Lookup(ctx context.Context, name string) (Profile, error) {
	if !c.Exists() {
		return Profile{}, apperrors.NewConfigError(fmt.Sprintf("settings cache %s not found", c.path), os.ErrNotExist)
	}

	db, err := sql.Open("sqlite", c.path+"?_pragma=query_only(1)")
	if err != nil {
		return Profile{}, apperrors.NewConfigError("open settings cache", err)
	}
	defer db.Close()

	var dbType, host, port, dbName, user, password sql.NullString
	err = db.QueryRowContext(ctx, lookupSQL, name).Scan(&dbType, &host, &port, &dbName, &user, &password)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, apperrors.NewConfigError(fmt.Sprintf("profile %q not found in settings cache", name), err)
	}
	if err != nil {
		return Profile{}, apperrors.NewConfigError("read settings cache", err).WithContext("path", c.path)
	}

	driver, err := NormalizeDriver(dbType.String)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{
		Name:     name,
		Driver:   driver,
		Host:     host.String,
		Database: dbName.String,
		User:     user.String,
		Password: password.String,
	}
	if s := strings.TrimSpace(port.String); s != "" {
		p.Port, err = strconv.Atoi(s)
		if err != nil {
			return Profile{}, apperrors.NewConfigError(fmt.Sprintf("profile %q has invalid port %q", name, s), err)
		}
	}

	c.logger.DebugContext(ctx, "settings_profile_loaded", slog.Any("profile", p))
	return p, nil
}
