package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ahmad-alkadri/image-depot/internal/services"
)

// ResponseFormatter formats HTTP responses
type ResponseFormatter interface {
	FormatUploadResponse(name string, result *services.UploadResult) map[string]any
	FormatImageResponse(name string, img *services.StoredImage, now time.Time) map[string]any
	FormatListResponse(images []services.StoredImage, listErr error) map[string]any
	FormatStatusResponse(location string, objects []services.ObjectInfo, listErr error, now time.Time) map[string]any
	FormatErrorResponse(c services.Classification, suggestion string) map[string]any
}

// ImageInfo is one entry of the listing response.
type ImageInfo struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
}

// DefaultResponseFormatter handles formatting HTTP responses
type DefaultResponseFormatter struct{}

// NewDefaultResponseFormatter creates a new response formatter
func NewDefaultResponseFormatter() *DefaultResponseFormatter {
	return &DefaultResponseFormatter{}
}

// FormatUploadResponse formats the response for the upload endpoint
func (f *DefaultResponseFormatter) FormatUploadResponse(name string, result *services.UploadResult) map[string]any {
	return map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("Image %q uploaded successfully!", name),
		"image":     result.URL,
		"name":      name,
		"key":       result.Key,
		"size":      result.Size,
		"upload_id": result.UploadID,
		"filename":  result.Filename,
	}
}

// FormatImageResponse formats a successful lookup. The image URL carries a
// timestamp so browsers refetch after an overwrite.
func (f *DefaultResponseFormatter) FormatImageResponse(name string, img *services.StoredImage, now time.Time) map[string]any {
	return map[string]any{
		"success":      true,
		"image":        fmt.Sprintf("%s?t=%d", img.URL, now.UnixMilli()),
		"name":         name,
		"key":          img.Key,
		"size":         img.Size,
		"size_human":   humanize.Bytes(uint64(img.Size)),
		"content_type": img.ContentType,
	}
}

// FormatListResponse formats the listing. A failed listing is still a
// success with no images and the error text attached.
func (f *DefaultResponseFormatter) FormatListResponse(images []services.StoredImage, listErr error) map[string]any {
	infos := make([]ImageInfo, 0, len(images))
	for _, img := range images {
		infos = append(infos, ImageInfo{
			Name:      img.Name,
			Filename:  img.Key,
			URL:       img.URL,
			Size:      img.Size,
			SizeHuman: humanize.Bytes(uint64(img.Size)),
		})
	}

	response := map[string]any{
		"success": true,
		"count":   len(infos),
		"images":  infos,
	}
	if listErr != nil {
		response["error"] = listErr.Error()
	}
	return response
}

// FormatStatusResponse formats the health endpoint.
func (f *DefaultResponseFormatter) FormatStatusResponse(location string, objects []services.ObjectInfo, listErr error, now time.Time) map[string]any {
	files := make([]string, 0, len(objects))
	for _, obj := range objects {
		files = append(files, obj.Key)
	}

	response := map[string]any{
		"success":   true,
		"message":   "Server is working!",
		"time":      now.UTC().Format(time.RFC3339),
		"storage":   location,
		"files":     files,
		"fileCount": len(files),
	}
	if listErr != nil {
		response["error"] = listErr.Error()
	}
	return response
}

// FormatErrorResponse formats a failed request.
func (f *DefaultResponseFormatter) FormatErrorResponse(c services.Classification, suggestion string) map[string]any {
	response := map[string]any{
		"success": false,
		"error":   c.Message,
		"code":    c.Code,
	}
	if suggestion != "" {
		response["suggestion"] = suggestion
	}
	return response
}
