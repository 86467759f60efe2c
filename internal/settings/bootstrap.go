package settings

import (
	"context"
	"fmt"
	"log/slog"

	"cdrcli/internal/config"
	apperrors "cdrcli/internal/errors"
)

// ExplicitProfileName labels profiles built from config or environment
const ExplicitProfileName = "config"

// Bootstrap resolves the connection profile for a run. Explicit database
// settings win; otherwise the named profile is read from the settings cache,
// downloading the cache first when it is missing.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Profile, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Database.Explicit() {
		p := FromConfig(ExplicitProfileName, cfg.Database)
		if err := p.Validate(); err != nil {
			return Profile{}, err
		}
		logger.InfoContext(ctx, "settings_resolved", slog.String("source", "config"), slog.Any("profile", p))
		return p, nil
	}

	cache := NewCache(cfg.Settings.CachePath, logger)
	if !cache.Exists() {
		if err := fetchCache(ctx, cfg.Settings, cache, logger); err != nil {
			return Profile{}, err
		}
	}

	p, err := cache.Lookup(ctx, cfg.Settings.Profile)
	if err != nil {
		return Profile{}, err
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}

	logger.InfoContext(ctx, "settings_resolved",
		slog.String("source", "cache"),
		slog.String("cache_path", cache.Path()),
		slog.Any("profile", p))
	return p, nil
}

func fetchCache(ctx context.Context, sc config.SettingsConfig, cache *Cache, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, sc.FetchTimeout)
	defer cancel()

	fetcher, err := NewFetcher(ctx, sc, logger)
	if err != nil {
		return apperrors.NewConfigError("create settings fetcher", err)
	}
	if fetcher == nil {
		return apperrors.NewConfigError(
			fmt.Sprintf("settings cache %s is missing and no download source is configured", cache.Path()), nil)
	}

	logger.InfoContext(ctx, "settings_download_start",
		slog.String("source", fetcher.Source()),
		slog.String("path", cache.Path()))
	return Download(ctx, fetcher, cache.Path())
}
