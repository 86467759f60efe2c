package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "cdrcli/internal/errors"
)

// FileValidator checks the input file and report directory before a run
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateInputFile checks that path is an existing, readable regular file
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("input_file_missing",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewInputNotFoundError(path, err)
	}
	if info.IsDir() {
		v.logger.Error("input_path_is_directory", slog.String("path", path))
		return apperrors.NewInputNotFoundError(path, fmt.Errorf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("input_file_unreadable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apperrors.NewIOReadError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("input_file_validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists and accepts new files
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("output_directory_create_failed",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewValidationError(fmt.Sprintf("cannot create output directory %s: %v", dir, err))
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("output_directory_not_writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewValidationError(fmt.Sprintf("output directory %s is not writable: %v", dir, err))
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("output_directory_validated", slog.String("directory", dir))
	return nil
}

// OutputDirFor returns dir when set, else the directory holding input
func OutputDirFor(input, dir string) string {
	if dir != "" {
		return dir
	}
	return filepath.Dir(input)
}
