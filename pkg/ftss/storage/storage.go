// Package storage abstracts the blob store holding entity image attachments.
package storage

import (
	"context"
	"strconv"
	"strings"
)

// Store uploads and deletes entity attachments. Implementations return the
// public URL of the stored object.
type Store interface {
	// UploadImage stores a base64-encoded image for an entity and returns
	// its URL.
	UploadImage(ctx context.Context, entityID uint, folder, data string) (string, error)
	// DeleteImage removes the stored image for an entity.
	DeleteImage(ctx context.Context, entityID uint, folder string) error
	// UpdateImage replaces the stored image. When value is already a URL it
	// is returned unchanged; when it is empty the stored image is deleted
	// and "" returned; otherwise the new content is uploaded.
	UpdateImage(ctx context.Context, entityID uint, folder, value string) (string, error)
}

// IsURL reports whether value references an already-stored image rather
// than new base64 content.
func IsURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

func objectName(entityID uint, folder string) string {
	return folder + "/" + strconv.FormatUint(uint64(entityID), 10) + ".png"
}

// Noop is a Store that keeps nothing. Used in tests and when no blob store
// is configured; attachment handling is best-effort by design.
type Noop struct{}

// UploadImage returns an empty URL.
func (Noop) UploadImage(ctx context.Context, entityID uint, folder, data string) (string, error) {
	return "", nil
}

// DeleteImage does nothing.
func (Noop) DeleteImage(ctx context.Context, entityID uint, folder string) error {
	return nil
}

// UpdateImage preserves URL values and drops everything else.
func (Noop) UpdateImage(ctx context.Context, entityID uint, folder, value string) (string, error) {
	if IsURL(value) {
		return value, nil
	}
	return "", nil
}
