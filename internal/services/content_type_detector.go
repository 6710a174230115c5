package services

import (
	"bytes"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ahmad-alkadri/image-depot/internal/config"
)

const octetStream = "application/octet-stream"

// ContentTypeDetector detects content types from data or filenames
type ContentTypeDetector interface {
	DetectFromData(data []byte) string
	DetectFromFilename(filename string) string
	DetectFromContentType(contentType string) string
}

// DefaultContentTypeDetector detects image types from magic bytes and
// extensions.
type DefaultContentTypeDetector struct{}

// NewDefaultContentTypeDetector creates a new content type detector
func NewDefaultContentTypeDetector() *DefaultContentTypeDetector {
	return &DefaultContentTypeDetector{}
}

// DetectFromData sniffs the common image signatures.
func (d *DefaultContentTypeDetector) DetectFromData(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return "image/png"
	case len(data) >= 6 && (bytes.Equal(data[:6], []byte("GIF87a")) || bytes.Equal(data[:6], []byte("GIF89a"))):
		return "image/gif"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	}
	return octetStream
}

// DetectFromFilename detects content type from filename extension
func (d *DefaultContentTypeDetector) DetectFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return octetStream
	}
}

// DetectFromContentType strips parameters from a declared content type.
func (d *DefaultContentTypeDetector) DetectFromContentType(contentType string) string {
	if contentType == "" {
		return octetStream
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return octetStream
	}

	return mediaType
}

// IsImageKey reports whether key carries one of config.ImageExtensions.
func IsImageKey(key string) bool {
	return slices.Contains(config.ImageExtensions, strings.ToLower(filepath.Ext(key)))
}
