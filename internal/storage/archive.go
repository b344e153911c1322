package storage

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/AlBaraa63/Clean-City/internal/metrics"
)

// MaxImageSize is the largest image accepted for archiving.
const MaxImageSize = 20 << 20

// Archive stores event images under dated keys.
type Archive struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// NewArchive wraps a Storage backend.
func NewArchive(s Storage, logger *slog.Logger) *Archive {
	return &Archive{
		storage: s,
		logger:  logger.With("component", "archive"),
		now:     time.Now,
	}
}

// Save validates data as an accepted image and stores it, returning the key.
// declaredType is used only when the content cannot be sniffed.
func (a *Archive) Save(ctx context.Context, data []byte, declaredType string) (key string, err error) {
	const op = "archive.save"

	defer func() {
		status := "stored"
		if err != nil {
			status = "rejected"
		}
		metrics.ImagesArchived.WithLabelValues(status).Inc()
	}()

	if len(data) > MaxImageSize {
		return "", toDomain(ErrTooLarge, op)
	}
	contentType := DetectContentType(declaredType, data)
	if !IsAllowedImageType(contentType) {
		return "", toDomain(ErrUnsupportedType, op)
	}

	key = EventImageKey(a.now(), contentType)
	err = a.storage.Put(ctx, key, bytes.NewReader(data), PutOptions{
		ContentType: contentType,
		MaxSize:     MaxImageSize,
	})
	if err != nil {
		a.logger.Error("failed to archive image", "key", key, "error", err)
		return "", toDomain(err, op)
	}

	a.logger.Info("image archived", "key", key, "size", len(data), "content_type", contentType)
	return key, nil
}

// Discard removes an archived image. Used to roll back when the event that
// referenced it could not be stored.
func (a *Archive) Discard(ctx context.Context, key string) error {
	if err := a.storage.Delete(ctx, key); err != nil {
		return toDomain(err, "archive.discard")
	}
	return nil
}

// Open returns the image stored at key.
func (a *Archive) Open(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	const op = "archive.open"

	rc, info, err := a.storage.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, toDomain(err, op)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, ObjectInfo{}, toDomain(err, op)
	}
	return buf.Bytes(), info, nil
}
