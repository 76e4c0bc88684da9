package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"explaincli/internal/dataset"
	apierrors "explaincli/internal/errors"
)

// DefaultMaxFileBytes caps dataset files read from disk
const DefaultMaxFileBytes int64 = 256 << 20

// SupportedExtensions are the dataset formats the loader understands
var SupportedExtensions = []string{dataset.ExtCSV, dataset.ExtXLSX}

// FileValidator checks dataset files before they are parsed
type FileValidator struct {
	logger   *slog.Logger
	maxBytes int64
}

// NewFileValidator creates a validator rejecting files above maxBytes.
// A non-positive maxBytes uses DefaultMaxFileBytes.
func NewFileValidator(logger *slog.Logger, maxBytes int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &FileValidator{
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// ValidateFile checks that path is a readable regular file within the size cap
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return apierrors.NewNotFoundError(fmt.Sprintf("file %s", path))
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apierrors.NewStorageError("failed to stat file", err).WithContext("path", path)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return apierrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if info.Size() > v.maxBytes {
		v.logger.Error("File exceeds size limit",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("max_bytes", v.maxBytes))
		return apierrors.NewAppValidationError(
			fmt.Sprintf("file %s is %d bytes, limit is %d", path, info.Size(), v.maxBytes)).
			WithContext("path", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return apierrors.NewStorageError("file is not readable", err).WithContext("path", path)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateDatasetFile runs ValidateFile and then checks the format: the
// extension must be supported and the file must not be an Excel lock file
func (v *FileValidator) ValidateDatasetFile(path string) error {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file",
			slog.String("file", path))
		return apierrors.NewAppValidationError(fmt.Sprintf("%s is a temporary Excel file", base)).
			WithContext("path", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !IsSupportedExtension(ext) {
		v.logger.Error("Unsupported dataset format",
			slog.String("file", path),
			slog.String("extension", ext))
		return apierrors.NewAppValidationError(
			fmt.Sprintf("unsupported dataset format %q, want one of %s", ext, strings.Join(SupportedExtensions, ", "))).
			WithContext("path", path)
	}

	return v.ValidateFile(path)
}

// IsSupportedExtension reports whether ext (with dot, any case) is a dataset format
func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
