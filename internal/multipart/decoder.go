// Package multipart decodes multipart/form-data request bodies into scalar
// fields and file parts.
//
// The decoder works on the raw body bytes end to end. Only the header block of
// each part is converted to a string; payloads are sliced out of the body and
// never pass through a text encoding, so every byte value 0x00-0xFF survives
// unchanged.
package multipart

import (
	"bytes"
	"regexp"
	"strings"
)

// DefaultContentType is used for file parts that carry no Content-Type header.
const DefaultContentType = "application/octet-stream"

// DefaultFieldName is used for file parts whose Content-Disposition has a
// filename but no name.
const DefaultFieldName = "file"

var (
	crlf          = []byte("\r\n")
	headerEnd     = []byte("\r\n\r\n")
	closingMarker = []byte("--")

	// Parameters are matched only at the start of the value or after a
	// separator so that `name=` is never found inside `filename=`.
	nameParam     = regexp.MustCompile(`(?:^|[;\s])name="([^"]+)"`)
	filenameParam = regexp.MustCompile(`(?:^|[;\s])filename="([^"]+)"`)
)

// File is a single file part of a multipart body.
type File struct {
	// FieldName is the form field the file was submitted under.
	FieldName string
	// Filename is the client-side filename from Content-Disposition.
	Filename string
	// ContentType is the declared part type, or DefaultContentType.
	ContentType string
	// Header holds the part headers keyed by lower-cased name.
	Header map[string]string
	// Data is the exact payload. It does not alias the decoded body.
	Data []byte
}

// Size returns the payload length in bytes.
func (f File) Size() int {
	return len(f.Data)
}

// Result is the outcome of decoding one body.
type Result struct {
	Fields map[string]string
	// Files keeps the order in which parts appear in the body.
	Files []File
}

// FirstFile returns the first file part, if any.
func (r *Result) FirstFile() (File, bool) {
	if len(r.Files) == 0 {
		return File{}, false
	}
	return r.Files[0], true
}

// Decode splits body on the boundary delimiter and returns every field and
// file part it could make sense of. It never fails: segments without a header
// separator or without a usable Content-Disposition are skipped.
func Decode(body []byte, boundary string) *Result {
	result := &Result{Fields: make(map[string]string)}
	if boundary == "" {
		return result
	}

	delimiter := []byte("--" + boundary)
	for _, segment := range bytes.Split(body, delimiter) {
		trimmed := bytes.TrimSpace(segment)
		if len(trimmed) == 0 || bytes.Equal(trimmed, closingMarker) {
			continue
		}

		idx := bytes.Index(segment, headerEnd)
		if idx == -1 {
			continue
		}

		header := parseHeader(segment[:idx])
		payload := trimTrailingCRLF(segment[idx+len(headerEnd):])

		disposition, ok := header["content-disposition"]
		if !ok {
			continue
		}
		name := dispositionParam(nameParam, disposition)
		filename := dispositionParam(filenameParam, disposition)

		switch {
		case filename != "":
			if name == "" {
				name = DefaultFieldName
			}
			contentType := header["content-type"]
			if contentType == "" {
				contentType = DefaultContentType
			}
			result.Files = append(result.Files, File{
				FieldName:   name,
				Filename:    filename,
				ContentType: contentType,
				Header:      header,
				Data:        bytes.Clone(payload),
			})
		case name != "":
			result.Fields[name] = string(payload)
		}
	}

	return result
}

// parseHeader turns a CRLF-separated header block into a map. Lines without a
// colon are ignored and a repeated header keeps its last value.
func parseHeader(block []byte) map[string]string {
	header := make(map[string]string)
	for _, line := range strings.Split(string(block), "\r\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		header[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return header
}

func dispositionParam(re *regexp.Regexp, disposition string) string {
	m := re.FindStringSubmatch(disposition)
	if m == nil {
		return ""
	}
	return m[1]
}

// trimTrailingCRLF removes exactly one CRLF from the end of b, if present.
func trimTrailingCRLF(b []byte) []byte {
	if bytes.HasSuffix(b, crlf) {
		return b[:len(b)-len(crlf)]
	}
	return b
}
