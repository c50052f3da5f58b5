package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3ObjectStore implements ObjectStore for Amazon S3 and S3 compatible endpoints
type S3ObjectStore struct {
	client   s3iface.S3API
	bucket   string
	region   string
	endpoint string
}

// NewS3ObjectStore creates a new S3ObjectStore instance
func NewS3ObjectStore(config *S3Config) (*S3ObjectStore, error) {
	if config == nil {
		return nil, NewValidationError("S3 storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid S3 storage configuration", err)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"", // token
		),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return NewS3ObjectStoreWithClient(s3.New(sess), config), nil
}

// NewS3ObjectStoreWithClient wires an existing client, typically a test double
func NewS3ObjectStoreWithClient(client s3iface.S3API, config *S3Config) *S3ObjectStore {
	return &S3ObjectStore{
		client:   client,
		bucket:   config.Bucket,
		region:   config.Region,
		endpoint: config.Endpoint,
	}
}

// Put uploads the object
func (s *S3ObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return NewStorageError("failed to buffer object for upload", err).WithContext("key", key)
		}
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentTypeFor(key)),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObjectWithContext(ctx, input); err != nil {
		return s.wrapError("failed to upload object to S3", key, err)
	}
	return nil
}

// Get downloads the object
func (s *S3ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.wrapError("failed to download object from S3", key, err)
	}
	return result.Body, nil
}

// Delete removes the object
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return s.wrapError("failed to delete object from S3", key, err)
	}
	return nil
}

// List pages through every object under prefix
func (s *S3ObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	err := s.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				objects = append(objects, ObjectInfo{
					Key:          aws.StringValue(obj.Key),
					Size:         aws.Int64Value(obj.Size),
					LastModified: aws.TimeValue(obj.LastModified),
				})
			}
			return true
		})
	if err != nil {
		return nil, s.wrapError("failed to list objects in S3", prefix, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// URL returns the virtual hosted or path style URL of the object
func (s *S3ObjectStore) URL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.endpoint, "/"), s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// HealthCheck verifies that the bucket is reachable
func (s *S3ObjectStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return NewStorageError("S3 health check failed: bucket not accessible", err).
			WithContext("bucket", s.bucket)
	}
	return nil
}

func (s *S3ObjectStore) wrapError(message, key string, err error) *BackupError {
	if isS3NotFound(err) {
		return NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == "AccessDenied" {
		return NewPermissionError(message, err).WithContext("key", key)
	}
	return NewStorageError(message, err).WithContext("key", key)
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	switch aerr.Code() {
	case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
		return true
	default:
		return false
	}
}

func contentTypeFor(key string) string {
	if strings.HasSuffix(key, ".xlsx") {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}
