package settings

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cdrcli/internal/config"
	apperrors "cdrcli/internal/errors"
)

// Fetcher downloads the settings cache file from a remote source
type Fetcher interface {
	Fetch(ctx context.Context, w io.Writer) error
	Source() string
}

var driveFileID = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)

// DownloadURL turns a Google Drive share link into its direct download form.
// Other URLs are returned unchanged.
func DownloadURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasSuffix(u.Host, "drive.google.com") {
		return raw
	}
	m := driveFileID.FindStringSubmatch(u.Path)
	if m == nil {
		return raw
	}
	return "https://drive.google.com/uc?" + url.Values{"export": {"download"}, "id": {m[1]}}.Encode()
}

// HTTPFetcher downloads over HTTP, following the download_warning confirm
// cookie that file hosts set in front of large files.
type HTTPFetcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher for rawURL
func NewHTTPFetcher(rawURL string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		url:    DownloadURL(rawURL),
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "settings_fetcher")),
	}
}

// Source returns the effective download URL
func (f *HTTPFetcher) Source() string { return f.url }

// Fetch writes the downloaded file to w
func (f *HTTPFetcher) Fetch(ctx context.Context, w io.Writer) error {
	resp, err := f.get(ctx, f.url)
	if err != nil {
		return err
	}

	if isHTML(resp) {
		token := confirmToken(resp.Cookies())
		resp.Body.Close()
		if token == "" {
			return fmt.Errorf("download from %s returned an HTML page", f.url)
		}

		f.logger.InfoContext(ctx, "settings_download_confirm", slog.String("url", f.url))
		resp, err = f.get(ctx, withConfirm(f.url, token))
		if err != nil {
			return err
		}
		if isHTML(resp) {
			resp.Body.Close()
			return fmt.Errorf("confirmed download from %s still returned an HTML page", f.url)
		}
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read download body: %w", err)
	}
	f.logger.InfoContext(ctx, "settings_download_complete", slog.Int64("bytes", n))
	return nil
}

func (f *HTTPFetcher) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: unexpected status %s", u, resp.Status)
	}
	return resp, nil
}

func isHTML(resp *http.Response) bool {
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mt == "text/html"
}

func confirmToken(cookies []*http.Cookie) string {
	for _, c := range cookies {
		if strings.HasPrefix(c.Name, "download_warning") {
			return c.Value
		}
	}
	return ""
}

func withConfirm(raw, token string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("confirm", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewFetcher picks the configured source: S3 when a bucket is set, otherwise
// the HTTP URL. It returns nil when no source is configured.
func NewFetcher(ctx context.Context, sc config.SettingsConfig, logger *slog.Logger) (Fetcher, error) {
	switch {
	case sc.S3Bucket != "":
		f, err := NewS3Fetcher(ctx, sc.S3Bucket, sc.S3Key, sc.S3Region)
		if err != nil {
			return nil, err
		}
		return f, nil
	case sc.SourceURL != "":
		return NewHTTPFetcher(sc.SourceURL, sc.FetchTimeout, logger), nil
	default:
		return nil, nil
	}
}

// Download fetches into path atomically, creating parent directories
func Download(ctx context.Context, f Fetcher, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewConfigError("create settings directory", err).WithContext("dir", dir)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return apperrors.NewConfigError("create settings temp file", err)
	}
	defer os.Remove(tmp.Name())

	if err := f.Fetch(ctx, tmp); err != nil {
		tmp.Close()
		return apperrors.NewConfigError("download settings cache", err).WithContext("source", f.Source())
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewConfigError("write settings cache", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewConfigError("install settings cache", err).WithContext("path", path)
	}
	return nil
}
