package backup

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// fakeS3 keeps objects in memory and pages listings two keys at a time
type fakeS3 struct {
	s3iface.S3API

	mu          sync.Mutex
	objects     map[string][]byte
	contentType map[string]string
	denied      bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), contentType: make(map[string]string)}
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	if f.denied {
		return nil, awserr.New("AccessDenied", "denied", nil)
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(in.Key)] = data
	f.contentType[aws.StringValue(in.Key)] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.StringValue(in.Key)
	if _, ok := f.objects[key]; !ok {
		return nil, awserr.New("NotFound", "missing", nil)
	}
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(ctx aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.StringValue(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sizes := make(map[string]int64, len(keys))
	for _, key := range keys {
		sizes[key] = int64(len(f.objects[key]))
	}
	f.mu.Unlock()

	// reverse order so the store has to sort
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for start := 0; start < len(keys) || start == 0; start += 2 {
		end := start + 2
		if end > len(keys) {
			end = len(keys)
		}
		page := &s3.ListObjectsV2Output{}
		for _, key := range keys[start:end] {
			page.Contents = append(page.Contents, &s3.Object{
				Key:          aws.String(key),
				Size:         aws.Int64(sizes[key]),
				LastModified: aws.Time(modified),
			})
		}
		if !fn(page, end >= len(keys)) || end >= len(keys) {
			break
		}
	}
	return nil
}

func (f *fakeS3) HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, _ ...request.Option) (*s3.HeadBucketOutput, error) {
	if aws.StringValue(in.Bucket) != "jewel-backups" {
		return nil, awserr.New("NotFound", "no bucket", nil)
	}
	return &s3.HeadBucketOutput{}, nil
}

func newTestS3Store(client s3iface.S3API) *S3ObjectStore {
	return NewS3ObjectStoreWithClient(client, &S3Config{
		Bucket:    "jewel-backups",
		Region:    "ap-south-1",
		AccessKey: "a",
		SecretKey: "s",
	})
}

func TestS3ObjectStore_RoundTrip(t *testing.T) {
	client := newFakeS3()
	store := newTestS3Store(client)
	ctx := context.Background()

	keys := []string{"p/a.xlsx", "p/b.xlsx", "p/c.xlsx", "other/d.xlsx"}
	for _, key := range keys {
		// a plain io.Reader has to be buffered before upload
		if err := store.Put(ctx, key, io.MultiReader(strings.NewReader(key)), int64(len(key))); err != nil {
			t.Fatalf("Put(%s) error = %v", key, err)
		}
	}
	if got := client.contentType["p/a.xlsx"]; got != contentTypeFor("x.xlsx") {
		t.Errorf("content type = %q", got)
	}

	objects, err := store.List(ctx, "p/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("List() returned %d objects, want 3 across pages", len(objects))
	}
	for i, want := range []string{"p/a.xlsx", "p/b.xlsx", "p/c.xlsx"} {
		if objects[i].Key != want {
			t.Errorf("List()[%d] = %s, want %s", i, objects[i].Key, want)
		}
	}

	rc, err := store.Get(ctx, "p/b.xlsx")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "p/b.xlsx" {
		t.Errorf("Get() = %q", data)
	}

	if err := store.Delete(ctx, "p/b.xlsx"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "p/b.xlsx"); err != nil {
		t.Errorf("Delete() of a missing object should succeed, got %v", err)
	}
	if _, err := store.Get(ctx, "p/b.xlsx"); !IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
}

func TestS3ObjectStore_Errors(t *testing.T) {
	client := newFakeS3()
	client.denied = true
	store := newTestS3Store(client)

	err := store.Put(context.Background(), "k.xlsx", strings.NewReader("x"), 1)
	if err == nil || !IsPermanent(err) {
		t.Errorf("Put() error = %v, want permission error", err)
	}

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	other := NewS3ObjectStoreWithClient(client, &S3Config{Bucket: "nope", Region: "ap-south-1"})
	if err := other.HealthCheck(context.Background()); err == nil {
		t.Error("Expected HealthCheck() to fail for a missing bucket")
	}
}

func TestS3ObjectStore_URL(t *testing.T) {
	store := newTestS3Store(newFakeS3())
	if got := store.URL("a/b.xlsx"); got != "https://jewel-backups.s3.ap-south-1.amazonaws.com/a/b.xlsx" {
		t.Errorf("URL() = %q", got)
	}

	compatible := NewS3ObjectStoreWithClient(newFakeS3(), &S3Config{Bucket: "b", Endpoint: "http://localhost:9000/"})
	if got := compatible.URL("k"); got != "http://localhost:9000/b/k" {
		t.Errorf("URL() = %q", got)
	}
}
