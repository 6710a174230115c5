package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmad-alkadri/image-depot/internal/services"
)

// failingStore is an ImageStore whose every call fails.
type failingStore struct {
	err error
}

func (f failingStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return f.err
}

func (f failingStore) Get(ctx context.Context, key string) ([]byte, services.ObjectInfo, error) {
	return nil, services.ObjectInfo{}, f.err
}

func (f failingStore) Stat(ctx context.Context, key string) (services.ObjectInfo, error) {
	return services.ObjectInfo{}, f.err
}

func (f failingStore) List(ctx context.Context) ([]services.ObjectInfo, error) {
	return nil, f.err
}

func (f failingStore) Location() string { return "nowhere" }

var errDiskGone = errors.New("disk gone")

// newTestServer serves the full router over a FileStore rooted in a temp dir.
func newTestServer(t *testing.T, maxBodySize int64) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := services.NewFileStore(dir, services.NewDefaultContentTypeDetector())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return newTestServerWithStore(t, store, maxBodySize), dir
}

func newTestServerWithStore(t *testing.T, store services.ImageStore, maxBodySize int64) *httptest.Server {
	t.Helper()
	svc := services.NewDefaultImageService(store, services.NewDefaultContentTypeDetector(), services.NewUUIDGenerator(), services.Options{
		MaxBodySize: maxBodySize,
		Limiter:     services.NewUploadLimiter(2, time.Second),
	})
	handler := NewHTTPHandler(svc, NewDefaultResponseFormatter(), maxBodySize)

	server := httptest.NewServer(NewRouter(handler, 10*time.Second))
	t.Cleanup(server.Close)
	return server
}

// imageForm builds a multipart body with one file part under field "image".
func imageForm(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return body, writer.FormDataContentType()
}

func upload(t *testing.T, server *httptest.Server, name string, data []byte) *http.Response {
	t.Helper()
	body, contentType := imageForm(t, "photo.jpg", data)
	resp, err := http.Post(server.URL+"/api/upload?name="+name, contentType, body)
	if err != nil {
		t.Fatalf("POST /api/upload error = %v", err)
	}
	return resp
}

// decodeJSON reads and closes resp.Body.
func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected content type 'application/json', got %q", ct)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to parse JSON response: %v", err)
	}
	return out
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return data
}

// binaryImage is a JPEG header followed by every byte value and an embedded
// blank line.
func binaryImage() []byte {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	for i := 0; i < 256; i++ {
		data = append(data, byte(i))
	}
	return append(data, "\r\n\r\n--tail\r\n"...)
}
