package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const localTempPrefix = ".tmp-"

// LocalObjectStore implements ObjectStore on a local directory tree. It backs
// development setups and shared network drives.
type LocalObjectStore struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalObjectStore creates a new LocalObjectStore instance
func NewLocalObjectStore(config *LocalConfig) (*LocalObjectStore, error) {
	if config == nil {
		return nil, NewValidationError("local storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid local storage configuration", err)
	}

	permissions := config.Permissions
	if permissions == 0 {
		permissions = 0755
	}

	store := &LocalObjectStore{
		basePath:    config.BasePath,
		permissions: permissions,
	}

	if err := os.MkdirAll(store.basePath, store.permissions); err != nil {
		return nil, NewStorageError("failed to create base directory", err).
			WithContext("base_path", store.basePath)
	}

	return store, nil
}

// Put writes the object through a temporary file so readers never see a
// partial object
func (s *LocalObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	target, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("put canceled", err)
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, s.permissions); err != nil {
		return NewStorageError("failed to create object directory", err).WithContext("key", key)
	}

	tmp, err := os.CreateTemp(dir, localTempPrefix+"*")
	if err != nil {
		return NewStorageError("failed to create temporary object", err).WithContext("key", key)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return NewStorageError("failed to write object", err).WithContext("key", key)
	}
	if err := tmp.Close(); err != nil {
		return NewStorageError("failed to close object", err).WithContext("key", key)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return NewStorageError("failed to commit object", err).WithContext("key", key)
	}
	return nil
}

// Get opens the object for reading
func (s *LocalObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	target, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(target)
	if errors.Is(err, os.ErrNotExist) {
		return nil, NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
	}
	if err != nil {
		return nil, NewStorageError("failed to open object", err).WithContext("key", key)
	}
	return f, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *LocalObjectStore) Delete(ctx context.Context, key string) error {
	target, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewStorageError("failed to delete object", err).WithContext("key", key)
	}
	return nil
}

// List returns the objects whose key starts with prefix, sorted by key
func (s *LocalObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, NewStorageError("failed to list objects", err).WithContext("prefix", prefix)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// URL returns a file URL for the object
func (s *LocalObjectStore) URL(key string) string {
	abs, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		abs = filepath.Join(s.basePath, filepath.FromSlash(key))
	}
	return "file://" + filepath.ToSlash(abs)
}

// HealthCheck verifies that the base directory is writable
func (s *LocalObjectStore) HealthCheck(ctx context.Context) error {
	testFile := filepath.Join(s.basePath, ".health_check")

	if err := os.WriteFile(testFile, []byte("health_check"), 0644); err != nil {
		return NewStorageError("storage health check failed: cannot write to base directory", err)
	}

	if _, err := os.ReadFile(testFile); err != nil {
		return NewStorageError("storage health check failed: cannot read from base directory", err)
	}

	_ = os.Remove(testFile)
	return nil
}

// BasePath returns the root directory of the store
func (s *LocalObjectStore) BasePath() string {
	return s.basePath
}

// objectPath maps a key to a file below basePath, refusing keys that escape it
func (s *LocalObjectStore) objectPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", NewValidationError(fmt.Sprintf("invalid object key %q", key), nil)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", NewValidationError(fmt.Sprintf("invalid object key %q", key), nil)
		}
	}
	return filepath.Join(s.basePath, filepath.FromSlash(path.Clean(key))), nil
}
