package backup

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup/mocks"
)

func newTestMinIOStore(client *mocks.MinIOClient) *MinIOObjectStore {
	return NewMinIOObjectStoreWithClient(client, &MinIOConfig{
		Endpoint:  "http://localhost:9000",
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "jewel-backups",
		Region:    "us-east-1",
	})
}

func listing(objects ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		ch <- obj
	}
	close(ch)
	return ch
}

func TestMinIOObjectStore_PutCreatesBucketOnce(t *testing.T) {
	client := new(mocks.MinIOClient)
	store := newTestMinIOStore(client)
	ctx := context.Background()

	client.On("BucketExists", ctx, "jewel-backups").Return(false, nil).Once()
	client.On("MakeBucket", ctx, "jewel-backups", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil).Once()
	client.On("PutObject", ctx, "jewel-backups", "a/backup.xlsx", mock.Anything, int64(4),
		mock.MatchedBy(func(opts minio.PutObjectOptions) bool {
			return opts.ContentType == contentTypeFor("a/backup.xlsx")
		})).Return(minio.UploadInfo{}, nil).Twice()

	require.NoError(t, store.Put(ctx, "a/backup.xlsx", strings.NewReader("data"), 4))
	require.NoError(t, store.Put(ctx, "a/backup.xlsx", strings.NewReader("data"), 4))

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "BucketExists", 1)
}

func TestMinIOObjectStore_PutFailure(t *testing.T) {
	client := new(mocks.MinIOClient)
	store := newTestMinIOStore(client)
	ctx := context.Background()

	client.On("BucketExists", ctx, "jewel-backups").Return(true, nil)
	client.On("PutObject", ctx, "jewel-backups", "k.xlsx", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("connection reset"))

	err := store.Put(ctx, "k.xlsx", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestMinIOObjectStore_Get(t *testing.T) {
	client := new(mocks.MinIOClient)
	store := newTestMinIOStore(client)
	ctx := context.Background()

	client.On("GetObject", ctx, "jewel-backups", "present.xlsx", minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader("workbook")), nil)
	client.On("GetObject", ctx, "jewel-backups", "missing.xlsx", minio.GetObjectOptions{}).
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey"})

	rc, err := store.Get(ctx, "present.xlsx")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))

	_, err = store.Get(ctx, "missing.xlsx")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMinIOObjectStore_List(t *testing.T) {
	client := new(mocks.MinIOClient)
	store := newTestMinIOStore(client)
	ctx := context.Background()
	modified := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	client.On("ListObjects", ctx, "jewel-backups", minio.ListObjectsOptions{Prefix: "p/", Recursive: true}).
		Return(listing(
			minio.ObjectInfo{Key: "p/b.xlsx", Size: 2, LastModified: modified},
			minio.ObjectInfo{Key: "p/a.xlsx", Size: 1, LastModified: modified},
		)).Once()

	objects, err := store.List(ctx, "p/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "p/a.xlsx", objects[0].Key)
	assert.Equal(t, int64(2), objects[1].Size)
	assert.Equal(t, modified, objects[1].LastModified)

	client.On("ListObjects", ctx, "jewel-backups", minio.ListObjectsOptions{Prefix: "q/", Recursive: true}).
		Return(listing(minio.ObjectInfo{Err: minio.ErrorResponse{Code: "NoSuchBucket"}})).Once()
	objects, err = store.List(ctx, "q/")
	require.NoError(t, err)
	assert.Empty(t, objects)

	client.On("ListObjects", ctx, "jewel-backups", minio.ListObjectsOptions{Prefix: "r/", Recursive: true}).
		Return(listing(minio.ObjectInfo{Err: minio.ErrorResponse{Code: "AccessDenied"}})).Once()
	_, err = store.List(ctx, "r/")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestMinIOObjectStore_DeleteIgnoresMissing(t *testing.T) {
	client := new(mocks.MinIOClient)
	store := newTestMinIOStore(client)
	ctx := context.Background()

	client.On("RemoveObject", ctx, "jewel-backups", "gone.xlsx", minio.RemoveObjectOptions{}).
		Return(minio.ErrorResponse{Code: "NoSuchKey"})
	client.On("RemoveObject", ctx, "jewel-backups", "busy.xlsx", minio.RemoveObjectOptions{}).
		Return(errors.New("timeout"))

	assert.NoError(t, store.Delete(ctx, "gone.xlsx"))
	assert.Error(t, store.Delete(ctx, "busy.xlsx"))
}

func TestMinIOObjectStore_HealthCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		exists    bool
		err       error
		wantErr   bool
		retryable bool
	}{
		{"healthy", true, nil, false, false},
		{"missing bucket", false, nil, true, false},
		{"unreachable", false, errors.New("dial tcp: connection refused"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.MinIOClient)
			client.On("BucketExists", ctx, "jewel-backups").Return(tt.exists, tt.err)

			err := newTestMinIOStore(client).HealthCheck(ctx)
			assert.Equal(t, tt.wantErr, err != nil, "HealthCheck() error = %v", err)
			if err != nil {
				assert.Equal(t, tt.retryable, IsRetryable(err))
			}
		})
	}
}

func TestMinIOObjectStore_URL(t *testing.T) {
	store := newTestMinIOStore(new(mocks.MinIOClient))
	assert.Equal(t, "http://localhost:9000/jewel-backups/database_backups/m/s/b.xlsx", store.URL("database_backups/m/s/b.xlsx"))

	secure := NewMinIOObjectStoreWithClient(new(mocks.MinIOClient), &MinIOConfig{Endpoint: "minio.example.com", Bucket: "b", UseSSL: true})
	assert.Equal(t, "https://minio.example.com/b/k", secure.URL("k"))
}

func TestBackupStoreOverMinIO(t *testing.T) {
	client := new(mocks.MinIOClient)
	objects := newTestMinIOStore(client)
	store := newTestBackupStore(t, objects, nil)
	ctx := context.Background()
	prefix := testScope.Prefix()

	client.On("ListObjects", ctx, "jewel-backups", minio.ListObjectsOptions{Prefix: prefix, Recursive: true}).
		Return(listing(minio.ObjectInfo{Key: prefix + "backup_20240101T000000Z.xlsx", Size: 3})).Once()
	client.On("RemoveObject", ctx, "jewel-backups", prefix+"backup_20240101T000000Z.xlsx", minio.RemoveObjectOptions{}).
		Return(nil).Once()
	client.On("BucketExists", ctx, "jewel-backups").Return(true, nil).Once()
	client.On("PutObject", ctx, "jewel-backups", prefix+"backup_20240301T090100000Z.xlsx", mock.Anything, int64(3), mock.Anything).
		Return(minio.UploadInfo{}, nil).Once()

	url, err := store.Upload(ctx, writeWorkbookFile(t, "new"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/jewel-backups/"+prefix+"backup_20240301T090100000Z.xlsx", url)
	client.AssertExpectations(t)
}
