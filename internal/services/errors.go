package services

import (
	"context"
	"errors"
)

// Validation errors. They are returned before any decoding or storage work.
var (
	ErrMissingName     = errors.New("name parameter is required")
	ErrInvalidName     = errors.New("name must not contain path separators or start with a dot")
	ErrBadContentType  = errors.New("content type must be multipart/form-data")
	ErrMissingBoundary = errors.New("no boundary in content type")
	ErrBodyTooLarge    = errors.New("request body too large")
)

var (
	// ErrNoFileProvided means the body decoded but held no file part.
	ErrNoFileProvided = errors.New("no file found in upload")
	// ErrNotFound means no image is stored under the normalized name.
	ErrNotFound = errors.New("image not found")
	// ErrStorage wraps every failure of the underlying ImageStore.
	ErrStorage = errors.New("storage error")
	// ErrTooManyUploads means no upload slot freed up in time.
	ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")
)

// Error codes reported to clients alongside the message.
const (
	CodeMissingName     = "missing_name"
	CodeInvalidName     = "invalid_name"
	CodeBadContentType  = "bad_content_type"
	CodeMissingBoundary = "missing_boundary"
	CodeBodyTooLarge    = "body_too_large"
	CodeNoFileProvided  = "no_file_provided"
	CodeNotFound        = "not_found"
	CodeStorage         = "storage_error"
	CodeBusy            = "too_many_uploads"
	CodeCanceled        = "request_canceled"
	CodeInternal        = "internal_error"
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindTooLarge
	KindBusy
	KindStorage
)

// Classification is the machine-readable form of a service error.
type Classification struct {
	Kind    Kind
	Code    string
	Message string
}

var classifications = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrMissingName, KindValidation, CodeMissingName},
	{ErrInvalidName, KindValidation, CodeInvalidName},
	{ErrBadContentType, KindValidation, CodeBadContentType},
	{ErrMissingBoundary, KindValidation, CodeMissingBoundary},
	{ErrNoFileProvided, KindValidation, CodeNoFileProvided},
	{ErrBodyTooLarge, KindTooLarge, CodeBodyTooLarge},
	{ErrNotFound, KindNotFound, CodeNotFound},
	{ErrTooManyUploads, KindBusy, CodeBusy},
	{context.Canceled, KindBusy, CodeCanceled},
	{context.DeadlineExceeded, KindBusy, CodeCanceled},
	{ErrStorage, KindStorage, CodeStorage},
}

// Classify maps err onto a Kind and a stable code. Unknown errors are
// KindInternal.
func Classify(err error) Classification {
	for _, c := range classifications {
		if errors.Is(err, c.err) {
			return Classification{Kind: c.kind, Code: c.code, Message: err.Error()}
		}
	}
	return Classification{Kind: KindInternal, Code: CodeInternal, Message: "internal error"}
}
