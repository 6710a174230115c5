package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ahmad-alkadri/image-depot/internal/logging"
	"github.com/ahmad-alkadri/image-depot/internal/services"
)

// HTTPHandler adapts ImageService to HTTP.
type HTTPHandler struct {
	imageService      services.ImageService
	responseFormatter ResponseFormatter
	maxBodySize       int64
	now               func() time.Time
}

// NewHTTPHandler creates a new HTTP handler with dependencies
func NewHTTPHandler(
	imageService services.ImageService,
	responseFormatter ResponseFormatter,
	maxBodySize int64,
) *HTTPHandler {
	return &HTTPHandler{
		imageService:      imageService,
		responseFormatter: responseFormatter,
		maxBodySize:       maxBodySize,
		now:               time.Now,
	}
}

// UploadHandler stores the first file of a multipart body under ?name=.
func (h *HTTPHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		h.respondError(w, r, fmt.Errorf("%w, use ?name=xxx", services.ErrMissingName), "")
		return
	}

	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = fmt.Errorf("%w: limit is %d bytes", services.ErrBodyTooLarge, maxErr.Limit)
		} else {
			err = fmt.Errorf("request error: %w", err)
		}
		h.respondError(w, r, err, "")
		return
	}
	defer r.Body.Close()

	result, err := h.imageService.Upload(r.Context(), name, body, r.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, r, err, "")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, r, http.StatusOK, h.responseFormatter.FormatUploadResponse(name, result))
}

// GetImageHandler reports where the image stored under ?name= can be fetched.
func (h *HTTPHandler) GetImageHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	img, err := h.imageService.Retrieve(r.Context(), name)
	if err != nil {
		suggestion := ""
		if errors.Is(err, services.ErrNotFound) {
			err = fmt.Errorf("%w for %q", services.ErrNotFound, name)
			suggestion = "Upload an image first"
		}
		h.respondError(w, r, err, suggestion)
		return
	}

	h.writeJSON(w, r, http.StatusOK, h.responseFormatter.FormatImageResponse(name, img, h.now()))
}

// ListHandler lists stored images. Storage failures degrade to an empty list.
func (h *HTTPHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	images, err := h.imageService.ListImages(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn("listing images failed", "error", err)
	}

	h.writeJSON(w, r, http.StatusOK, h.responseFormatter.FormatListResponse(images, err))
}

// StatusHandler reports liveness and the raw contents of storage.
func (h *HTTPHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	objects, err := h.imageService.ListObjects(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Warn("listing objects failed", "error", err)
	}

	h.writeJSON(w, r, http.StatusOK,
		h.responseFormatter.FormatStatusResponse(h.imageService.Location(), objects, err, h.now()))
}

// ImageFileHandler serves the bytes of a stored image.
func (h *HTTPHandler) ImageFileHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "filename")

	data, img, err := h.imageService.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Image not found", http.StatusNotFound)
			return
		}
		logging.FromContext(r.Context()).Error("serving image failed", "key", key, "error", err)
		http.Error(w, "Error reading image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}

// NotFoundHandler answers unknown routes.
func (h *HTTPHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusNotFound, map[string]any{
		"success": false,
		"error":   "Route not found: " + r.URL.Path,
	})
}

// MethodNotAllowedHandler answers known routes called with the wrong method.
func (h *HTTPHandler) MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]any{
		"success": false,
		"error":   "Method not allowed: " + r.Method,
	})
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, err error, suggestion string) {
	c := services.Classify(err)
	status := statusFor(c.Kind)

	logger := logging.FromContext(r.Context())
	args := []any{"path", r.URL.Path, "status", status, "code", c.Code, "error", err}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	if c.Kind == services.KindBusy {
		w.Header().Set("Retry-After", "5")
	}
	h.writeJSON(w, r, status, h.responseFormatter.FormatErrorResponse(c, suggestion))
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case services.KindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
