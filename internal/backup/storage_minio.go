package backup

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient is the subset of the MinIO SDK the object store needs
type MinIOClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// NewMinIOClient creates a MinIO SDK client with bounded transport timeouts
func NewMinIOClient(cfg *MinIOConfig) (MinIOClient, error) {
	// the SDK expects the endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, NewConfigurationError("failed to create MinIO client", err)
	}

	return &minioClientWrapper{Client: client}, nil
}

type minioClientWrapper struct {
	*minio.Client
}

func (c *minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// MinIOObjectStore implements ObjectStore on a MinIO or S3 compatible server
type MinIOObjectStore struct {
	client   MinIOClient
	bucket   string
	region   string
	endpoint string
	useSSL   bool

	bucketOnce sync.Mutex
	bucketOK   bool
}

// NewMinIOObjectStore creates a new MinIOObjectStore instance
func NewMinIOObjectStore(config *MinIOConfig) (*MinIOObjectStore, error) {
	if config == nil {
		return nil, NewValidationError("MinIO storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid MinIO storage configuration", err)
	}

	client, err := NewMinIOClient(config)
	if err != nil {
		return nil, err
	}
	return NewMinIOObjectStoreWithClient(client, config), nil
}

// NewMinIOObjectStoreWithClient wires an existing client, typically a mock
func NewMinIOObjectStoreWithClient(client MinIOClient, config *MinIOConfig) *MinIOObjectStore {
	return &MinIOObjectStore{
		client:   client,
		bucket:   config.Bucket,
		region:   config.Region,
		endpoint: config.Endpoint,
		useSSL:   config.UseSSL,
	}
}

// ensureBucket creates the bucket on first write
func (m *MinIOObjectStore) ensureBucket(ctx context.Context) error {
	m.bucketOnce.Lock()
	defer m.bucketOnce.Unlock()
	if m.bucketOK {
		return nil
	}

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return NewNetworkError("failed to check MinIO bucket", err).WithContext("bucket", m.bucket)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return NewStorageError("failed to create MinIO bucket", err).WithContext("bucket", m.bucket)
		}
	}
	m.bucketOK = true
	return nil
}

// Put uploads the object, creating the bucket when needed
func (m *MinIOObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := m.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentTypeFor(key),
	})
	if err != nil {
		return m.wrapError("failed to upload object to MinIO", key, err)
	}
	return nil
}

// Get downloads the object. The SDK reader is lazy so the object is stat'ed
// first to report a missing key here instead of on the first read.
func (m *MinIOObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrapError("failed to download object from MinIO", key, err)
	}

	if st, ok := rc.(interface {
		Stat() (minio.ObjectInfo, error)
	}); ok {
		if _, err := st.Stat(); err != nil {
			rc.Close()
			return nil, m.wrapError("failed to download object from MinIO", key, err)
		}
	}
	return rc, nil
}

// Delete removes the object
func (m *MinIOObjectStore) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isMinIONotFound(err) {
		return m.wrapError("failed to delete object from MinIO", key, err)
	}
	return nil
}

// List drains the SDK listing channel for prefix
func (m *MinIOObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			if isMinIONotFound(obj.Err) {
				return nil, nil
			}
			return nil, m.wrapError("failed to list objects in MinIO", prefix, obj.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// URL returns the path style URL of the object
func (m *MinIOObjectStore) URL(key string) string {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(m.endpoint, "http://"), "https://")
	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, m.bucket, key)
}

// HealthCheck verifies that the server answers and the bucket exists
func (m *MinIOObjectStore) HealthCheck(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return NewNetworkError("MinIO health check failed", err).WithContext("bucket", m.bucket)
	}
	if !exists {
		return NewNotFoundError(fmt.Sprintf("MinIO bucket %s does not exist", m.bucket), nil)
	}
	return nil
}

func (m *MinIOObjectStore) wrapError(message, key string, err error) *BackupError {
	if isMinIONotFound(err) {
		return NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
	}
	if minio.ToErrorResponse(err).Code == "AccessDenied" {
		return NewPermissionError(message, err).WithContext("key", key)
	}
	return NewStorageError(message, err).WithContext("key", key)
}

func isMinIONotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchObject":
		return true
	default:
		return false
	}
}
