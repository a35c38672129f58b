package filestorage

import (
	"context"
	"errors"
	"mime/multipart"
)

var (
	// ErrInvalidKey is returned for keys that escape the storage root
	ErrInvalidKey = errors.New("invalid object key")
	// ErrUnsupportedType is returned when the sniffed content type is not allowed
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when an upload exceeds the configured limit
	ErrTooLarge = errors.New("file too large")
)

// StoredObject describes a file after it has been written to storage
type StoredObject struct {
	Key      string // Storage key, e.g. "avatars/<uuid>.png"
	URL      string // Public URL
	Filename string // Original filename
	Size     int64
	MimeType string
}

// FileStorage defines the interface for object storage backends
type FileStorage interface {
	// Save writes an uploaded file under prefix and returns where it landed
	Save(ctx context.Context, fileHeader *multipart.FileHeader, prefix string) (*StoredObject, error)

	// Delete removes an object by key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
}
