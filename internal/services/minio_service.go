package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ahmad-alkadri/image-depot/internal/config"
)

// MinioStore keeps images as objects in a single MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and creates the bucket if it is missing.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	store := &MinioStore{
		client: client,
		bucket: cfg.Bucket,
	}

	if err := store.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return store, nil
}

func (m *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("error checking if bucket exists: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("error creating bucket: %w", err)
		}
		slog.Info("created bucket", "bucket", m.bucket)
	}

	return nil
}

func (m *MinioStore) Location() string {
	return m.client.EndpointURL().String() + "/" + m.bucket
}

// Put uploads data as a single object. MinIO only exposes an object once the
// upload completes, so readers never see a partial image.
func (m *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

func (m *MinioStore) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, m.translate(key, err)
	}
	defer object.Close()

	stat, err := object.Stat()
	if err != nil {
		return nil, ObjectInfo{}, m.translate(key, err)
	}

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	info := toObjectInfo(stat)
	info.Size = int64(len(data))
	return data, info, nil
}

func (m *MinioStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	stat, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, m.translate(key, err)
	}
	return toObjectInfo(stat), nil
}

func (m *MinioStore) List(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	for object := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			return nil, fmt.Errorf("error listing objects: %w", object.Err)
		}
		objects = append(objects, toObjectInfo(object))
	}

	return objects, nil
}

func (m *MinioStore) translate(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return fmt.Errorf("failed to get object %s: %w", key, err)
}

func toObjectInfo(o minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:         o.Key,
		Size:        o.Size,
		ContentType: o.ContentType,
		ModTime:     o.LastModified,
	}
}
