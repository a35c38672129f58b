package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadPolicy restricts what Save accepts
type UploadPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Check validates size and sniffed content type, returning the detected type
func (p UploadPolicy) Check(fileHeader *multipart.FileHeader) (string, error) {
	if p.MaxBytes > 0 && fileHeader.Size > p.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, fileHeader.Size, p.MaxBytes)
	}

	mimeType, err := sniff(fileHeader)
	if err != nil {
		return "", err
	}

	if len(p.AllowedTypes) == 0 {
		return mimeType, nil
	}
	for _, t := range p.AllowedTypes {
		if t == mimeType {
			return mimeType, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
}

func sniff(fileHeader *multipart.FileHeader) (string, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	mimeType := http.DetectContentType(buf[:n])
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType, nil
}

// newObjectKey builds "<prefix>/<uuid><ext>"
func newObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.New().String() + ext
	if prefix == "" {
		return name
	}
	return path.Join(strings.Trim(prefix, "/"), name)
}

// cleanKey rejects keys that try to leave the storage root
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
