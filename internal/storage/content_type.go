package storage

import (
	"mime"
	"net/http"
	"strings"
)

// =============================================================================
// Content Type Detection
// =============================================================================

// DetectContentType determines the MIME type of an upload.
//
// Detection priority:
// 1. Sniffing the first 512 bytes of data
// 2. providedType, when sniffing is inconclusive
// 3. "application/octet-stream"
func DetectContentType(providedType string, data []byte) string {
	n := len(data)
	if n > 512 {
		n = 512
	}
	if sniffed := baseType(http.DetectContentType(data[:n])); sniffed != "application/octet-stream" {
		return sniffed
	}
	if provided := baseType(providedType); provided != "" {
		return provided
	}
	return "application/octet-stream"
}

// =============================================================================
// Content Type Validation
// =============================================================================

// AllowedImageTypes maps the MIME types accepted for event images to the
// extension used in their keys.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsAllowedImageType checks if a content type is an accepted image format.
func IsAllowedImageType(contentType string) bool {
	_, ok := AllowedImageTypes[baseType(contentType)]
	return ok
}

// =============================================================================
// Helpers
// =============================================================================

// baseType strips parameters and normalizes case.
func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}

// extensionForContentType returns a file extension for a MIME type.
func extensionForContentType(contentType string) string {
	if ext, ok := AllowedImageTypes[baseType(contentType)]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(baseType(contentType)); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
