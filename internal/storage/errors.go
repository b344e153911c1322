package storage

import (
	"errors"
	"fmt"

	"github.com/AlBaraa63/Clean-City/internal/domain"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNotFound is returned when a requested object doesn't exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrTooLarge is returned when an object exceeds the maximum allowed size.
	ErrTooLarge = errors.New("object exceeds maximum size")

	// ErrAccessDenied is returned when the provider rejects the credentials.
	ErrAccessDenied = errors.New("access denied")

	// ErrUnsupportedType is returned for uploads that are not an accepted
	// image format.
	ErrUnsupportedType = errors.New("unsupported image type")
)

// =============================================================================
// Structured Error Type
// =============================================================================

// StorageError wraps storage operation errors with the operation and key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates an object was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// toDomain maps storage failures onto application error codes.
func toDomain(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTooLarge):
		return domain.Wrap(err, domain.ETOOLARGE, op, fmt.Sprintf("image exceeds the %d MB limit", MaxImageSize>>20))
	case errors.Is(err, ErrUnsupportedType):
		return domain.Wrap(err, domain.EINVALID, op, "image must be JPEG, PNG, GIF or WebP")
	case errors.Is(err, ErrNotFound):
		return domain.Wrap(err, domain.ENOTFOUND, op, "image not found")
	}
	return domain.StorageFailure(err, op)
}
