package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tempPattern = ".upload-*.tmp"

// FileStore keeps every object as a single file directly under root.
type FileStore struct {
	root     string
	detector ContentTypeDetector
}

// NewFileStore returns a store rooted at dir. The directory must already
// exist; creating it is left to the caller.
func NewFileStore(dir string, detector ContentTypeDetector) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("storage root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", dir)
	}
	return &FileStore{root: dir, detector: detector}, nil
}

func (s *FileStore) Location() string {
	return s.root
}

// Put writes data to a temp file in root and renames it over key.
func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	finalPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.root, tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing %s: %w", key, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", key, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming into %s: %w", key, err)
	}
	success = true

	// The rename is only durable once the directory entry is flushed.
	if err := syncDir(s.root); err != nil {
		return fmt.Errorf("syncing %s after writing %s: %w", s.root, key, err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	info, err := s.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	p, _ := s.path(key)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("reading %s: %w", key, err)
	}
	// The file may have been replaced between Stat and ReadFile.
	info.Size = int64(len(data))
	return data, info, nil
}

func (s *FileStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	fi, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	if !fi.Mode().IsRegular() {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return s.objectInfo(key, fi), nil
}

// List returns the regular files in root sorted by key. In-flight temp files
// are skipped.
func (s *FileStore) List(ctx context.Context) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.root, err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isTempName(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			// Removed or replaced since ReadDir.
			continue
		}
		objects = append(objects, s.objectInfo(entry.Name(), fi))
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *FileStore) objectInfo(key string, fi fs.FileInfo) ObjectInfo {
	return ObjectInfo{
		Key:         key,
		Size:        fi.Size(),
		ContentType: s.detector.DetectFromFilename(key),
		ModTime:     fi.ModTime(),
	}
}

// path resolves key inside root, refusing anything that is not a plain file
// name.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, key)
	}
	return filepath.Join(s.root, key), nil
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".upload-") && strings.HasSuffix(name, ".tmp")
}
