// Package storage archives the images that accompany detection events.
//
// This package defines a Storage interface with implementations for:
// - LocalStorage: File system storage for development and single-node installs
// - R2Storage: Cloudflare R2 (S3-compatible) object storage
//
// Archive validates an uploaded image and stores it under a dated,
// collision-free key which is then recorded as the event's image_path.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the object operations the archive needs.
//
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at key. Returns ErrTooLarge when data exceeds
	// opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type recorded with the object.
	ContentType string

	// MaxSize is the maximum allowed size in bytes. 0 means no limit.
	MaxSize int64
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// =============================================================================
// Configuration
// =============================================================================

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where images are written.
	// Example: "./data/images"
	BasePath string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// Region is required by the AWS SDK; R2 accepts "auto".
	Region string
}

// Config selects a provider.
type Config struct {
	Provider string // "local" or "r2"; empty disables image archiving
	Local    LocalConfig
	R2       R2Config
}

// New builds the configured Storage. It returns nil, nil when no provider
// is configured.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case ProviderLocal:
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// =============================================================================
// Key Generation
// =============================================================================

// EventImageKey generates a storage key for an event image.
// Format: events/{yyyy}/{mm}/{uuid}{ext}
//
// Example: "events/2025/03/987fcdeb-51a2-43f1-b9c4-12345678abcd.jpg"
func EventImageKey(now time.Time, contentType string) string {
	now = now.UTC()
	return fmt.Sprintf("events/%04d/%02d/%s%s",
		now.Year(), int(now.Month()), uuid.New(), extensionForContentType(contentType))
}
