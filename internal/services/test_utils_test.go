package services

import (
	"bytes"
	"context"
	"fmt"
	stdmultipart "mime/multipart"
	"net/textproto"
	"sort"
	"sync"
	"testing"
	"time"
)

// MockImageStore is an in-memory ImageStore with injectable failures.
type MockImageStore struct {
	mu           sync.Mutex
	objects      map[string][]byte
	contentTypes map[string]string
	puts         int
	putError     error
	readError    error
	listError    error
}

func NewMockImageStore() *MockImageStore {
	return &MockImageStore{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (m *MockImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putError != nil {
		return m.putError
	}
	m.objects[key] = bytes.Clone(data)
	m.contentTypes[key] = contentType
	return nil
}

func (m *MockImageStore) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	info, err := m.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.objects[key]), info, nil
}

func (m *MockImageStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readError != nil {
		return ObjectInfo{}, m.readError
	}
	data, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.contentTypes[key], ModTime: time.Now()}, nil
}

func (m *MockImageStore) List(ctx context.Context) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listError != nil {
		return nil, m.listError
	}
	var objects []ObjectInfo
	for key, data := range m.objects {
		objects = append(objects, ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.contentTypes[key]})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MockImageStore) Location() string {
	return "memory"
}

func (m *MockImageStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

type fixedIDGenerator string

func (g fixedIDGenerator) Generate() string { return string(g) }

func newTestService(store ImageStore) *DefaultImageService {
	return NewDefaultImageService(store, NewDefaultContentTypeDetector(), fixedIDGenerator("test-upload"), Options{})
}

type formFile struct {
	field, filename, contentType string
	data                         []byte
}

// buildForm encodes fields and files with mime/multipart and returns the
// body together with its Content-Type header.
func buildForm(t *testing.T, fields map[string]string, files ...formFile) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	w := stdmultipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.filename))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("Failed to create part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("Failed to write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	return buf.Bytes(), w.FormDataContentType()
}

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x80, 0xFE, '\r', '\n', 0xFF, 0xD9}
