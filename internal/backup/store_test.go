package backup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

var testScope = Scope{UserMobile: "9000000000", StoreID: "store-1"}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newTestBackupStore(t *testing.T, objects ObjectStore, codec *ArtifactCodec) *BackupStore {
	t.Helper()
	store, err := NewBackupStore(objects, testScope, codec, logging.NewDiscardLogger())
	require.NoError(t, err)
	store.SetRetryConfig(appErrors.RetryConfig{MaxAttempts: 1})
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store.now = clock.Now
	return store
}

func writeWorkbookFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScopeValidate(t *testing.T) {
	tests := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{"valid", Scope{UserMobile: "9000000000", StoreID: "s1"}, false},
		{"empty mobile", Scope{StoreID: "s1"}, true},
		{"blank store", Scope{UserMobile: "9", StoreID: "  "}, true},
		{"separator in store", Scope{UserMobile: "9", StoreID: "a/b"}, true},
		{"parent directory", Scope{UserMobile: "..", StoreID: "s1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scope.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() error = %v", err)
		})
	}

	assert.Equal(t, "database_backups/9000000000/s1/", Scope{UserMobile: "9000000000", StoreID: "s1"}.Prefix())
}

func TestNewBackupStoreRejectsBadInput(t *testing.T) {
	_, err := NewBackupStore(nil, testScope, nil, nil)
	require.Error(t, err)

	_, err = NewBackupStore(newTestLocalStore(t), Scope{}, nil, nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestBackupStoreUploadReplacesScope(t *testing.T) {
	ctx := context.Background()
	objects := newTestLocalStore(t)
	store := newTestBackupStore(t, objects, nil)

	other, err := NewBackupStore(objects, Scope{UserMobile: "9000000000", StoreID: "store-2"}, nil, nil)
	require.NoError(t, err)
	_, err = other.Upload(ctx, writeWorkbookFile(t, "other store"))
	require.NoError(t, err)

	first, err := store.Upload(ctx, writeWorkbookFile(t, "first"))
	require.NoError(t, err)
	second, err := store.Upload(ctx, writeWorkbookFile(t, "second"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(second, "file://"))
	assert.Contains(t, second, "database_backups/9000000000/store-1/backup_20240301T")

	backups, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 1, "upload must leave one live object per scope")
	assert.Equal(t, second, backups[0].DownloadURL)

	exists, err := other.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists, "other scopes are untouched")
}

func TestBackupStoreKeepHistoryListAndPrune(t *testing.T) {
	ctx := context.Background()
	store := newTestBackupStore(t, newTestLocalStore(t), nil)
	store.SetKeepHistory(true)

	for _, content := range []string{"one", "two", "three"} {
		_, err := store.Upload(ctx, writeWorkbookFile(t, content))
		require.NoError(t, err)
	}

	backups, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	for i := 1; i < len(backups); i++ {
		assert.True(t, backups[i-1].UploadDate.After(backups[i].UploadDate), "list must be newest first")
	}
	assert.Equal(t, "backup_20240301T090300000Z.xlsx", backups[0].FileName)
	assert.Equal(t, int64(len("three")), backups[0].SizeBytes)
	assert.Equal(t, CompressionTypeNone, backups[0].Compression)
	assert.False(t, backups[0].Encrypted)

	_, err = store.PruneToRecent(ctx, -1)
	require.Error(t, err)

	deleted, err := store.PruneToRecent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = store.PruneToRecent(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	remaining, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, backups[0].FileName, remaining[0].FileName)
}

func TestBackupStoreDownloadLatestDecodes(t *testing.T) {
	ctx := context.Background()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	codec := NewArtifactCodec(
		CompressionConfig{Enabled: true, Algorithm: CompressionTypeGzip, Level: 6, Threshold: 1},
		&EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return key, nil }},
	)
	store := newTestBackupStore(t, newTestLocalStore(t), codec)
	store.SetKeepHistory(true)

	content := strings.Repeat("jewel vault workbook ", 100)
	_, err := store.Upload(ctx, writeWorkbookFile(t, "older"))
	require.NoError(t, err)
	_, err = store.Upload(ctx, writeWorkbookFile(t, content))
	require.NoError(t, err)

	backups, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.True(t, strings.HasSuffix(backups[0].FileName, ".xlsx.gz.enc"), backups[0].FileName)
	assert.Equal(t, CompressionTypeGzip, backups[0].Compression)
	assert.True(t, backups[0].Encrypted)

	destDir := t.TempDir()
	path, err := store.DownloadLatest(ctx, destDir)
	require.NoError(t, err)
	assert.Equal(t, destDir, filepath.Dir(path))
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestBackupStoreDownloadLatestEmptyScope(t *testing.T) {
	store := newTestBackupStore(t, newTestLocalStore(t), nil)

	_, err := store.DownloadLatest(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	exists, err := store.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBackupStoreLatestSkipsHandCopiedWorkbooks(t *testing.T) {
	ctx := context.Background()
	objects := newTestLocalStore(t)
	store := newTestBackupStore(t, objects, nil)
	store.SetKeepHistory(true)

	prefix := testScope.Prefix()
	for key, content := range map[string]string{
		prefix + "backup_20240101T000000Z.xlsx": "legacy",
		prefix + "manual.xlsx":                  "stray",
		prefix + "backup_notes.xlsx":            "notes",
	} {
		require.NoError(t, objects.Put(ctx, key, strings.NewReader(content), int64(len(content))))
	}
	_, err := store.Upload(ctx, writeWorkbookFile(t, "current"))
	require.NoError(t, err)

	backups, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "backup_20240301T090100000Z.xlsx", backups[0].FileName)
	assert.Equal(t, "backup_20240101T000000Z.xlsx", backups[1].FileName)

	path, err := store.DownloadLatest(ctx, t.TempDir())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "current", string(data))
}

func TestBackupStoreUploadsWithinOneSecondKeepBoth(t *testing.T) {
	ctx := context.Background()
	store := newTestBackupStore(t, newTestLocalStore(t), nil)
	store.SetKeepHistory(true)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	}

	first, err := store.Upload(ctx, writeWorkbookFile(t, "first"))
	require.NoError(t, err)
	second, err := store.Upload(ctx, writeWorkbookFile(t, "second"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	backups, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "backup_20240301T090000500Z.xlsx", backups[0].FileName)
	assert.Equal(t, "backup_20240301T090000250Z.xlsx", backups[1].FileName)
}

func TestParseBackupTime(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name   string
		object string
		want   time.Time
		ok     bool
	}{
		{"milliseconds", "backup_20240102T030405123Z.xlsx", base.Add(123 * time.Millisecond), true},
		{"seconds only", "backup_20240102T030405Z.xlsx.zst.enc", base, true},
		{"foreign workbook", "manual.xlsx", time.Time{}, false},
		{"backup prefix without time", "backup_notes.xlsx", time.Time{}, false},
		{"missing zone", "backup_20240102T030405.xlsx", time.Time{}, false},
		{"short fraction", "backup_20240102T03040512Z.xlsx", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseBackupTime(tt.object)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
	assert.Equal(t, "20240102T030405123Z", formatBackupTime(base.Add(123*time.Millisecond+456*time.Microsecond)))
}

func TestBackupStoreUploadMissingFile(t *testing.T) {
	store := newTestBackupStore(t, newTestLocalStore(t), nil)

	_, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestBackupStoreIgnoresForeignObjects(t *testing.T) {
	ctx := context.Background()
	objects := newTestLocalStore(t)
	store := newTestBackupStore(t, objects, nil)

	prefix := testScope.Prefix()
	require.NoError(t, objects.Put(ctx, prefix+"notes.txt", strings.NewReader("x"), 1))
	require.NoError(t, objects.Put(ctx, prefix+"nested/backup_x.xlsx", strings.NewReader("x"), 1))

	backups, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, backups)
}
