package services

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by an ImageStore when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// ImageStore is a flat key/value namespace of binary objects.
//
// Put must be atomic: a concurrent Stat or Get observes either the previous
// object or the complete new one, never a partial write. Two Puts to the same
// key race and the one that completes last wins.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	List(ctx context.Context) ([]ObjectInfo, error)
	// Location names where objects live, for status reporting.
	Location() string
}
