package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/khanrajesh/JewelVaultMobile-sub002/internal/errors"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

const (
	// RootPrefix is the top level folder of every scope
	RootPrefix = "database_backups"

	backupNamePrefix = "backup_"
	// backupNameLayout is followed by three millisecond digits and a Z.
	// Names written before millisecond precision end right after the seconds.
	backupNameLayout = "20060102T150405"
	workbookExt      = ".xlsx"
)

// Scope identifies the backups of one store of one user
type Scope struct {
	UserMobile string
	StoreID    string
}

// Validate rejects scopes that would escape their folder
func (s Scope) Validate() error {
	var errors ValidationErrors
	for field, value := range map[string]string{"user_mobile": s.UserMobile, "store_id": s.StoreID} {
		switch {
		case strings.TrimSpace(value) == "":
			errors.Add(field, "must not be empty", value)
		case strings.ContainsAny(value, `/\`) || value == "." || value == "..":
			errors.Add(field, "must not contain path separators", value)
		}
	}
	return errors.orNil()
}

// Prefix is the folder holding the scope's objects, with a trailing slash
func (s Scope) Prefix() string {
	return path.Join(RootPrefix, s.UserMobile, s.StoreID) + "/"
}

// BackupStore keeps the backups of one scope in an ObjectStore under
// database_backups/<userMobile>/<storeId>/
type BackupStore struct {
	objects     ObjectStore
	scope       Scope
	codec       *ArtifactCodec
	logger      *logging.Logger
	retry       *appErrors.RetryHandler
	keepHistory bool
	now         func() time.Time
}

// NewBackupStore creates a store for scope. A nil codec stores workbooks as is.
func NewBackupStore(objects ObjectStore, scope Scope, codec *ArtifactCodec, logger *logging.Logger) (*BackupStore, error) {
	if objects == nil {
		return nil, NewConfigurationError("object store is required", nil)
	}
	if err := scope.Validate(); err != nil {
		return nil, NewValidationError("invalid backup scope", err)
	}
	if codec == nil {
		codec = NewArtifactCodec(CompressionConfig{}, nil)
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	return &BackupStore{
		objects: objects,
		scope:   scope,
		codec:   codec,
		logger:  logger,
		retry:   appErrors.NewDefaultRetryHandler(),
		now:     time.Now,
	}, nil
}

// SetKeepHistory disables the delete-before-upload step
func (b *BackupStore) SetKeepHistory(keep bool) {
	b.keepHistory = keep
}

// SetRetryConfig replaces the retry policy used for remote calls
func (b *BackupStore) SetRetryConfig(config appErrors.RetryConfig) {
	b.retry = appErrors.NewRetryHandler(config)
}

// Scope returns the scope of the store
func (b *BackupStore) Scope() Scope {
	return b.scope
}

// Upload replaces the scope's backups with localFile and returns its URL.
// Existing objects are deleted before the new one is written, so a failed
// put leaves the scope empty.
func (b *BackupStore) Upload(ctx context.Context, localFile string) (string, error) {
	data, err := os.ReadFile(localFile)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("cannot read backup file %s", localFile), err)
	}

	encoded, suffix, stats, err := b.codec.Encode(data)
	if err != nil {
		return "", err
	}
	if stats != nil {
		b.logger.WithFields(map[string]interface{}{
			"algorithm":         string(stats.Algorithm),
			"level":             stats.Level,
			"original_size":     stats.OriginalSize,
			"compressed_size":   stats.CompressedSize,
			"compression_ratio": fmt.Sprintf("%.2f", stats.CompressionRatio),
		}).Debug("Backup compressed")
	}

	if !b.keepHistory {
		existing, err := b.listObjects(ctx)
		if err != nil {
			return "", err
		}
		for _, obj := range existing {
			if err := b.deleteObject(ctx, obj.Key); err != nil {
				return "", err
			}
		}
	}

	key := b.scope.Prefix() + b.objectName(suffix)
	start := time.Now()
	err = b.retry.Retry(ctx, func() error {
		return b.objects.Put(ctx, key, bytes.NewReader(encoded), int64(len(encoded)))
	})
	b.logger.LogRemoteTransfer("upload", key, int64(len(encoded)), time.Since(start), err)
	if err != nil {
		return "", err
	}

	return b.objects.URL(key), nil
}

// DownloadLatest fetches the newest backup of the scope into destDir and
// returns the path of the decoded workbook. The caller owns the file.
func (b *BackupStore) DownloadLatest(ctx context.Context, destDir string) (string, error) {
	objects, err := b.listObjects(ctx)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", NewNotFoundError("no backup found for this store", nil).
			WithContext("prefix", b.scope.Prefix())
	}
	latest := objects[len(objects)-1]

	var data []byte
	start := time.Now()
	err = b.retry.Retry(ctx, func() error {
		rc, err := b.objects.Get(ctx, latest.Key)
		if err != nil {
			return err
		}
		defer rc.Close()

		data, err = io.ReadAll(rc)
		if err != nil {
			return NewNetworkError("failed to read backup object", err).WithContext("key", latest.Key)
		}
		return nil
	})
	b.logger.LogRemoteTransfer("download", latest.Key, int64(len(data)), time.Since(start), err)
	if err != nil {
		return "", err
	}

	decoded, err := b.codec.Decode(path.Base(latest.Key), data)
	if err != nil {
		return "", err
	}

	if destDir == "" {
		destDir = os.TempDir()
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", NewStorageError("failed to create download directory", err)
	}
	f, err := os.CreateTemp(destDir, "restore-*"+workbookExt)
	if err != nil {
		return "", NewStorageError("failed to create download file", err)
	}
	if _, err := f.Write(decoded); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", NewStorageError("failed to write download file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", NewStorageError("failed to close download file", err)
	}

	return f.Name(), nil
}

// List returns the scope's backups, newest first
func (b *BackupStore) List(ctx context.Context) ([]BackupInfo, error) {
	objects, err := b.listObjects(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]BackupInfo, 0, len(objects))
	for i := len(objects) - 1; i >= 0; i-- {
		obj := objects[i]
		name := path.Base(obj.Key)
		algorithm, encrypted := b.codec.Describe(name)

		uploaded, ok := parseBackupTime(name)
		if !ok {
			uploaded = obj.LastModified
		}

		infos = append(infos, BackupInfo{
			FileName:    name,
			UploadDate:  uploaded,
			SizeBytes:   obj.Size,
			DownloadURL: b.objects.URL(obj.Key),
			Compression: algorithm,
			Encrypted:   encrypted,
		})
	}
	return infos, nil
}

// PruneToRecent deletes all but the keep newest backups and returns how many
// were deleted
func (b *BackupStore) PruneToRecent(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, NewValidationError(fmt.Sprintf("keep must not be negative, got %d", keep), nil)
	}

	objects, err := b.listObjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(objects) <= keep {
		return 0, nil
	}

	deleted := 0
	for _, obj := range objects[:len(objects)-keep] {
		if err := b.deleteObject(ctx, obj.Key); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// Exists reports whether the scope holds at least one backup
func (b *BackupStore) Exists(ctx context.Context) (bool, error) {
	objects, err := b.listObjects(ctx)
	if err != nil {
		return false, err
	}
	return len(objects) > 0, nil
}

// listObjects returns the scope's backup objects, oldest first by the time
// embedded in the name, then by modification time. Objects that are not
// backups, such as nested folders or hand-copied workbooks, are ignored.
func (b *BackupStore) listObjects(ctx context.Context) ([]ObjectInfo, error) {
	prefix := b.scope.Prefix()

	var objects []ObjectInfo
	err := b.retry.Retry(ctx, func() error {
		var err error
		objects, err = b.objects.List(ctx, prefix)
		return err
	})
	if err != nil {
		return nil, err
	}

	type dated struct {
		ObjectInfo
		stamp time.Time
	}
	backups := make([]dated, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, prefix)
		if strings.Contains(name, "/") || !strings.Contains(name, workbookExt) {
			continue
		}
		stamp, ok := parseBackupTime(name)
		if !ok {
			continue
		}
		backups = append(backups, dated{ObjectInfo: obj, stamp: stamp})
	}
	sort.SliceStable(backups, func(i, j int) bool {
		if !backups[i].stamp.Equal(backups[j].stamp) {
			return backups[i].stamp.Before(backups[j].stamp)
		}
		if !backups[i].LastModified.Equal(backups[j].LastModified) {
			return backups[i].LastModified.Before(backups[j].LastModified)
		}
		return backups[i].Key < backups[j].Key
	})

	out := make([]ObjectInfo, len(backups))
	for i := range backups {
		out[i] = backups[i].ObjectInfo
	}
	return out, nil
}

func (b *BackupStore) deleteObject(ctx context.Context, key string) error {
	return b.retry.Retry(ctx, func() error {
		return b.objects.Delete(ctx, key)
	})
}

func (b *BackupStore) objectName(suffix string) string {
	return backupNamePrefix + formatBackupTime(b.now()) + workbookExt + suffix
}

func formatBackupTime(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%03dZ", t.Format(backupNameLayout), t.Nanosecond()/int(time.Millisecond))
}

// parseBackupTime reads the upload time from a backup object name. It
// accepts both backup_20240102T030405123Z and backup_20240102T030405Z.
func parseBackupTime(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, backupNamePrefix)
	if !ok {
		return time.Time{}, false
	}
	if i := strings.Index(stamp, "."); i >= 0 {
		stamp = stamp[:i]
	}
	stamp, ok = strings.CutSuffix(stamp, "Z")
	if !ok || len(stamp) < len(backupNameLayout) {
		return time.Time{}, false
	}

	t, err := time.Parse(backupNameLayout, stamp[:len(backupNameLayout)])
	if err != nil {
		return time.Time{}, false
	}
	switch millis := stamp[len(backupNameLayout):]; len(millis) {
	case 0:
	case 3:
		ms, err := strconv.Atoi(millis)
		if err != nil || ms < 0 {
			return time.Time{}, false
		}
		t = t.Add(time.Duration(ms) * time.Millisecond)
	default:
		return time.Time{}, false
	}
	return t, true
}
