// Package services implements storing and looking up named images on top of
// an ImageStore.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ahmad-alkadri/image-depot/internal/logging"
	"github.com/ahmad-alkadri/image-depot/internal/multipart"
)

// DefaultExtension is appended to every normalized name to form a key.
const DefaultExtension = ".jpg"

// DefaultPublicPrefix is the path under which stored images are served.
const DefaultPublicPrefix = "/images/"

// ImageService uploads, looks up and lists named images.
type ImageService interface {
	Upload(ctx context.Context, name string, body []byte, contentType string) (*UploadResult, error)
	Retrieve(ctx context.Context, name string) (*StoredImage, error)
	Open(ctx context.Context, key string) ([]byte, *StoredImage, error)
	ListImages(ctx context.Context) ([]StoredImage, error)
	ListObjects(ctx context.Context) ([]ObjectInfo, error)
	Location() string
}

// StoredImage references one persisted image.
type StoredImage struct {
	Name        string
	Key         string
	URL         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// UploadResult describes a completed upload.
type UploadResult struct {
	StoredImage
	UploadID string
	// Filename is the client-side name of the stored file part.
	Filename string
	// Files is how many file parts the body held; only the first is stored.
	Files int
}

// Options tunes a DefaultImageService. Zero values select the defaults.
type Options struct {
	Extension    string
	PublicPrefix string
	MaxBodySize  int64
	Limiter      *UploadLimiter
}

// DefaultImageService is the ImageService used by the HTTP layer.
type DefaultImageService struct {
	store       ImageStore
	detector    ContentTypeDetector
	idGenerator IDGenerator
	limiter     *UploadLimiter

	extension    string
	publicPrefix string
	maxBodySize  int64
}

// NewDefaultImageService wires a service around store.
func NewDefaultImageService(
	store ImageStore,
	detector ContentTypeDetector,
	idGenerator IDGenerator,
	opts Options,
) *DefaultImageService {
	s := &DefaultImageService{
		store:        store,
		detector:     detector,
		idGenerator:  idGenerator,
		limiter:      opts.Limiter,
		extension:    opts.Extension,
		publicPrefix: opts.PublicPrefix,
		maxBodySize:  opts.MaxBodySize,
	}
	if s.extension == "" {
		s.extension = DefaultExtension
	}
	if !strings.HasPrefix(s.extension, ".") {
		s.extension = "." + s.extension
	}
	if s.publicPrefix == "" {
		s.publicPrefix = DefaultPublicPrefix
	}
	if !strings.HasSuffix(s.publicPrefix, "/") {
		s.publicPrefix += "/"
	}
	if s.limiter == nil {
		s.limiter = NewUploadLimiter(0, 0)
	}
	return s
}

// Key returns the storage key for a logical name.
func (s *DefaultImageService) Key(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMissingName
	}
	if strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return strings.ToLower(name) + s.extension, nil
}

// Upload decodes body and stores its first file part under name, replacing
// whatever was stored there before. Concurrent uploads to the same name race;
// the write that finishes last is the one kept.
func (s *DefaultImageService) Upload(ctx context.Context, name string, body []byte, contentType string) (*UploadResult, error) {
	key, err := s.Key(name)
	if err != nil {
		return nil, err
	}

	boundary, err := multipart.Boundary(contentType)
	switch {
	case errors.Is(err, multipart.ErrNoBoundary):
		return nil, ErrMissingBoundary
	case err != nil:
		return nil, ErrBadContentType
	}

	if s.maxBodySize > 0 && int64(len(body)) > s.maxBodySize {
		return nil, fmt.Errorf("%w: %s exceeds %s", ErrBodyTooLarge,
			humanize.Bytes(uint64(len(body))), humanize.Bytes(uint64(s.maxBodySize)))
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	uploadID := s.idGenerator.Generate()
	logger := logging.WithFields(ctx, "upload_id", uploadID, "key", key)

	form := multipart.Decode(body, boundary)
	file, ok := form.FirstFile()
	if !ok {
		logger.Info("upload rejected, no file part", "fields", len(form.Fields))
		return nil, ErrNoFileProvided
	}

	storedType := s.storedContentType(file)
	if sniffed := s.detector.DetectFromData(file.Data); sniffed != octetStream && sniffed != storedType {
		logger.Warn("declared content type does not match data",
			"declared", file.ContentType,
			"detected", sniffed,
		)
	}

	if err := s.store.Put(ctx, key, file.Data, storedType); err != nil {
		logger.Error("storage write failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	logger.Info("image saved",
		"filename", file.Filename,
		"size", humanize.Bytes(uint64(file.Size())),
		"bytes", file.Size(),
		"content_type", storedType,
		"file_parts", len(form.Files),
	)

	return &UploadResult{
		StoredImage: StoredImage{
			Name:        strings.ToLower(strings.TrimSpace(name)),
			Key:         key,
			URL:         s.publicPrefix + key,
			Size:        int64(file.Size()),
			ContentType: storedType,
			ModTime:     time.Now(),
		},
		UploadID: uploadID,
		Filename: file.Filename,
		Files:    len(form.Files),
	}, nil
}

// storedContentType prefers the declared part type and falls back to sniffing
// when the client sent the generic binary type.
func (s *DefaultImageService) storedContentType(file multipart.File) string {
	declared := s.detector.DetectFromContentType(file.ContentType)
	if declared != octetStream {
		return declared
	}
	if sniffed := s.detector.DetectFromData(file.Data); sniffed != octetStream {
		return sniffed
	}
	return s.detector.DetectFromFilename(file.Filename)
}

// Retrieve looks up the image stored under name.
func (s *DefaultImageService) Retrieve(ctx context.Context, name string) (*StoredImage, error) {
	key, err := s.Key(name)
	if err != nil {
		return nil, err
	}

	info, err := s.store.Stat(ctx, key)
	if err != nil {
		return nil, s.readError(ctx, key, err)
	}

	img := s.toStoredImage(info)
	return &img, nil
}

// Open returns the bytes of the object stored under key. Only image keys in
// the flat namespace are served.
func (s *DefaultImageService) Open(ctx context.Context, key string) ([]byte, *StoredImage, error) {
	if key == "" || !s.isImageKey(key) || strings.HasPrefix(key, ".") || strings.ContainsAny(key, "/\\\x00") {
		return nil, nil, ErrNotFound
	}

	data, info, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, nil, s.readError(ctx, key, err)
	}

	img := s.toStoredImage(info)
	if img.ContentType == "" || img.ContentType == octetStream {
		img.ContentType = s.detector.DetectFromFilename(key)
	}
	return data, &img, nil
}

// ListImages returns stored objects with an image extension.
func (s *DefaultImageService) ListImages(ctx context.Context) ([]StoredImage, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	images := make([]StoredImage, 0, len(objects))
	for _, obj := range objects {
		if s.isImageKey(obj.Key) {
			images = append(images, s.toStoredImage(obj))
		}
	}
	return images, nil
}

// ListObjects returns every stored object regardless of extension.
func (s *DefaultImageService) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return objects, nil
}

func (s *DefaultImageService) Location() string {
	return s.store.Location()
}

// isImageKey also accepts the service's own extension, so whatever Upload
// stores can be listed and served.
func (s *DefaultImageService) isImageKey(key string) bool {
	return IsImageKey(key) || strings.EqualFold(filepath.Ext(key), s.extension)
}

func (s *DefaultImageService) readError(ctx context.Context, key string, err error) error {
	if errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if errors.Is(err, ErrInvalidName) {
		return err
	}
	logging.FromContext(ctx).Error("storage read failed", "key", key, "error", err)
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func (s *DefaultImageService) toStoredImage(info ObjectInfo) StoredImage {
	return StoredImage{
		Name:        strings.TrimSuffix(info.Key, filepath.Ext(info.Key)),
		Key:         info.Key,
		URL:         s.publicPrefix + info.Key,
		Size:        info.Size,
		ContentType: info.ContentType,
		ModTime:     info.ModTime,
	}
}
