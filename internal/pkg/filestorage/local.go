package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/frogmembers/api/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where files will be stored
	baseURL  string // Public URL prefix the static route serves basePath under
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Save copies the upload to basePath/prefix under a random name
func (ls *LocalStorage) Save(ctx context.Context, fileHeader *multipart.FileHeader, prefix string) (*StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	key := newObjectKey(prefix, fileHeader.Filename)
	dstPath := filepath.Join(ls.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectory: %w", err)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		_ = os.Remove(dstPath)
		return nil, fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Debug().Str("filename", fileHeader.Filename).Str("key", key).Msg("File saved")
	return &StoredObject{
		Key:      key,
		URL:      ls.baseURL + "/" + key,
		Filename: fileHeader.Filename,
		Size:     written,
		MimeType: fileHeader.Header.Get("Content-Type"),
	}, nil
}

// Delete removes a stored file; a missing file counts as deleted
func (ls *LocalStorage) Delete(_ context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}

	physicalPath := filepath.Join(ls.basePath, filepath.FromSlash(cleaned))
	if err := os.Remove(physicalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Root returns the directory served as static content
func (ls *LocalStorage) Root() string {
	return ls.basePath
}
