package backup

import (
	"context"
	"io"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/transfer"
)

// ObjectStore abstracts the remote object storage backends. Keys are slash
// separated paths relative to the configured bucket or base directory.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// URL is a location for the key that a person can act on
	URL(key string) string
	HealthCheck(ctx context.Context) error
}

// RemoteStore is the scoped backup storage the sync manager drives
type RemoteStore interface {
	Upload(ctx context.Context, localFile string) (string, error)
	DownloadLatest(ctx context.Context, destDir string) (string, error)
	List(ctx context.Context) ([]BackupInfo, error)
	PruneToRecent(ctx context.Context, keep int) (int, error)
	Exists(ctx context.Context) (bool, error)
}

// Manager is the operation surface of the sync engine
type Manager interface {
	Backup(ctx context.Context, progress transfer.ProgressFunc) (*OperationResult, error)
	Restore(ctx context.Context, mode transfer.RestoreMode, progress transfer.ProgressFunc) (*OperationResult, error)
	ExportLocal(ctx context.Context, dest string, progress transfer.ProgressFunc) (*OperationResult, error)
	ImportLocal(ctx context.Context, file string, mode transfer.RestoreMode, progress transfer.ProgressFunc) (*OperationResult, error)
	ListBackups(ctx context.Context) ([]BackupInfo, error)
	PruneBackups(ctx context.Context, keep int) (*OperationResult, error)
}
