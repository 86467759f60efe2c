package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cdrcli/internal/errors"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "CDR-25120900.csv")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	v := NewFileValidator(nil)

	tests := []struct {
		name     string
		path     string
		wantType apperrors.ErrorType
	}{
		{name: "regular file", path: file},
		{name: "missing file", path: filepath.Join(dir, "absent.csv"), wantType: apperrors.ErrTypeInputNotFound},
		{name: "directory", path: dir, wantType: apperrors.ErrTypeInputNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInputFile(tt.path)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "reports", "daily")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	err = v.ValidateOutputDirectory(filepath.Join(blocker, "sub"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestOutputDirFor(t *testing.T) {
	assert.Equal(t, filepath.Join("in", "dir"), OutputDirFor(filepath.Join("in", "dir", "CDR-25120900.csv"), ""))
	assert.Equal(t, "out", OutputDirFor(filepath.Join("in", "CDR-25120900.csv"), "out"))
}
