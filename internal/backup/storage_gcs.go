package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSObjectStore implements ObjectStore for Google Cloud Storage
type GCSObjectStore struct {
	client     *storage.Client
	bucketName string
}

// NewGCSObjectStore creates a new GCSObjectStore instance
func NewGCSObjectStore(ctx context.Context, config *GCSConfig) (*GCSObjectStore, error) {
	if config == nil {
		return nil, NewValidationError("GCS storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid GCS storage configuration", err)
	}

	var client *storage.Client
	var err error

	if config.CredentialsPath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsPath))
	} else {
		// application default credentials
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSObjectStore{
		client:     client,
		bucketName: config.Bucket,
	}, nil
}

// Put streams the object into the bucket
func (g *GCSObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	writer := g.client.Bucket(g.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = contentTypeFor(key)

	if _, err := io.Copy(writer, r); err != nil {
		writer.Close()
		return NewStorageError("failed to write object to GCS", err).WithContext("key", key)
	}

	if err := writer.Close(); err != nil {
		return NewStorageError("failed to finalize GCS object", err).WithContext("key", key)
	}
	return nil
}

// Get opens a reader on the object
func (g *GCSObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := g.client.Bucket(g.bucketName).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
	}
	if err != nil {
		return nil, NewStorageError("failed to read object from GCS", err).WithContext("key", key)
	}
	return reader, nil
}

// Delete removes the object
func (g *GCSObjectStore) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucketName).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return NewStorageError("failed to delete object from GCS", err).WithContext("key", key)
	}
	return nil
}

// List iterates the objects under prefix
func (g *GCSObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	it := g.client.Bucket(g.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, NewStorageError("failed to list objects in GCS", err).WithContext("prefix", prefix)
		}
		objects = append(objects, ObjectInfo{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// URL returns the public storage URL of the object
func (g *GCSObjectStore) URL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucketName, key)
}

// HealthCheck verifies that the bucket is accessible
func (g *GCSObjectStore) HealthCheck(ctx context.Context) error {
	if _, err := g.client.Bucket(g.bucketName).Attrs(ctx); err != nil {
		return NewStorageError("GCS health check failed: bucket not accessible", err).
			WithContext("bucket", g.bucketName)
	}
	return nil
}

// Close releases the client
func (g *GCSObjectStore) Close() error {
	return g.client.Close()
}
