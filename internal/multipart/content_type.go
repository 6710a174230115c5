package multipart

import (
	"errors"
	"mime"
	"strings"
)

// MediaType is the only media type Boundary accepts.
const MediaType = "multipart/form-data"

var (
	ErrNotMultipart = errors.New("content type is not multipart/form-data")
	ErrNoBoundary   = errors.New("no boundary in content type")
)

// Boundary extracts the boundary parameter from a Content-Type header value.
//
// Well-formed headers go through mime.ParseMediaType. Headers it rejects are
// still accepted when they mention multipart/form-data and carry a
// boundary= parameter, as browsers and hand-written clients are not always
// strict about quoting.
func Boundary(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", ErrNotMultipart
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil {
		if mediaType != MediaType {
			return "", ErrNotMultipart
		}
		if b := params["boundary"]; b != "" {
			return b, nil
		}
		return "", ErrNoBoundary
	}

	if !strings.Contains(strings.ToLower(contentType), MediaType) {
		return "", ErrNotMultipart
	}
	return lenientBoundary(contentType)
}

func lenientBoundary(contentType string) (string, error) {
	idx := strings.Index(strings.ToLower(contentType), "boundary=")
	if idx == -1 {
		return "", ErrNoBoundary
	}
	value := contentType[idx+len("boundary="):]
	if end := strings.IndexByte(value, ';'); end != -1 {
		value = value[:end]
	}
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if value == "" {
		return "", ErrNoBoundary
	}
	return value, nil
}
