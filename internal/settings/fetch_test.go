package settings

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdrcli/internal/config"
	apperrors "cdrcli/internal/errors"
)

func TestDownloadURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "drive share link",
			in:   "https://drive.google.com/file/d/1oncya1uYDnbVS2KwuBAKw4x4o9oQDct0/view?usp=drive_link",
			want: "https://drive.google.com/uc?export=download&id=1oncya1uYDnbVS2KwuBAKw4x4o9oQDct0",
		},
		{name: "plain url", in: "https://files.example.com/Config_DB.db", want: "https://files.example.com/Config_DB.db"},
		{name: "drive without id", in: "https://drive.google.com/drive/my-drive", want: "https://drive.google.com/drive/my-drive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadURL(tt.in))
		})
	}
}

func TestHTTPFetcher_Direct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("SQLite format 3\x00"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, NewHTTPFetcher(srv.URL, time.Second, nil).Fetch(context.Background(), &buf))
	assert.Equal(t, "SQLite format 3\x00", buf.String())
}

func TestHTTPFetcher_ConfirmCookie(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("confirm") == "t0ken" {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("payload"))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "download_warning_12345", Value: "t0ken"})
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>virus scan warning</html>"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	require.NoError(t, NewHTTPFetcher(srv.URL+"/uc?id=abc", time.Second, nil).Fetch(context.Background(), &buf))
	assert.Equal(t, "payload", buf.String())
	assert.Equal(t, 2, calls)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "html without token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html></html>"))
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			assert.Error(t, NewHTTPFetcher(srv.URL, time.Second, nil).Fetch(context.Background(), io.Discard))
		})
	}
}

type fakeS3 struct {
	body  string
	err   error
	input *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Fetcher(t *testing.T) {
	client := &fakeS3{body: "cache-bytes"}
	f := NewS3FetcherWithClient(client, "cdr-settings", "prod/Config_DB.db")
	assert.Equal(t, "s3://cdr-settings/prod/Config_DB.db", f.Source())

	var buf bytes.Buffer
	require.NoError(t, f.Fetch(context.Background(), &buf))
	assert.Equal(t, "cache-bytes", buf.String())
	assert.Equal(t, "cdr-settings", aws.ToString(client.input.Bucket))
	assert.Equal(t, "prod/Config_DB.db", aws.ToString(client.input.Key))

	failing := NewS3FetcherWithClient(&fakeS3{err: errors.New("access denied")}, "b", "k")
	assert.ErrorContains(t, failing.Fetch(context.Background(), io.Discard), "access denied")
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DB", "Config_DB.db")
	failing := NewS3FetcherWithClient(&fakeS3{err: errors.New("boom")}, "b", "k")

	err := Download(context.Background(), failing, path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBootstrap_DownloadsMissingCache(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.db")
	writeCache(t, seed, hdMSSQL)
	payload, err := os.ReadFile(seed)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Settings.CachePath = filepath.Join(t.TempDir(), "DB", "Config_DB.db")
	cfg.Settings.SourceURL = srv.URL + "/Config_DB.db"

	p, err := Bootstrap(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", p.Host)
	assert.FileExists(t, cfg.Settings.CachePath)
}
