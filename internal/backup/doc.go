// Package backup moves workbook backups between the local database and remote
// object storage.
//
// The package is layered:
//
//   - ObjectStore is a flat key/value view of a storage backend. Local
//     directories, S3, Google Cloud Storage, Azure Blob Storage and MinIO are
//     supported and created through StorageFactory.
//   - ArtifactCodec optionally compresses (gzip, lz4, zstd) and encrypts
//     (AES-256-GCM) a workbook. The applied steps are recorded as object name
//     suffixes, for example backup_20240102T030405123Z.xlsx.zst.enc.
//   - BackupStore scopes an ObjectStore to one store of one user under
//     database_backups/<userMobile>/<storeId>/ and implements upload, latest
//     download, listing and pruning.
//   - SyncManager runs the user facing operations (remote backup and restore,
//     local export and import) one at a time and reports progress.
//
// Example usage:
//
//	objects, _ := backup.NewLocalObjectStore(&backup.LocalConfig{BasePath: "/srv/backups"})
//	store, _ := backup.NewBackupStore(objects, backup.Scope{UserMobile: "9000000000", StoreID: "store-1"}, nil, logger)
//
//	manager, _ := backup.NewSyncManager(backup.SyncDependencies{
//		Facade:   facade,
//		Settings: provider,
//		Store:    store,
//		Logger:   logger,
//	})
//
//	result, err := manager.Backup(ctx, func(msg string, pct int) {
//		fmt.Printf("%3d%% %s\n", pct, msg)
//	})
package backup
