package backup

import (
	"context"
	"testing"
	"time"
)

func TestSyncSystemConfig_SetDefaults(t *testing.T) {
	var cfg SyncSystemConfig
	cfg.Compression.Enabled = true
	cfg.SetDefaults()

	if cfg.Storage.Provider != StorageProviderLocal {
		t.Errorf("Provider = %s, want LOCAL", cfg.Storage.Provider)
	}
	if cfg.Storage.Local == nil || cfg.Storage.Local.BasePath != "./remote-backups" {
		t.Errorf("Local = %+v", cfg.Storage.Local)
	}
	if cfg.Compression.Algorithm != CompressionTypeGzip || cfg.Compression.Level != 6 {
		t.Errorf("Compression = %+v", cfg.Compression)
	}
	if cfg.Compression.Threshold != 1024 {
		t.Errorf("Threshold = %d, want 1024", cfg.Compression.Threshold)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults error = %v", err)
	}
}

func TestSyncSystemConfig_Validate(t *testing.T) {
	valid := func() SyncSystemConfig {
		return SyncSystemConfig{
			Storage: StorageConfig{
				Provider: StorageProviderLocal,
				Local:    &LocalConfig{BasePath: "/tmp/backups"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*SyncSystemConfig)
		wantErr bool
	}{
		{"valid", func(*SyncSystemConfig) {}, false},
		{"unknown provider", func(c *SyncSystemConfig) { c.Storage.Provider = "FTP" }, true},
		{"missing local section", func(c *SyncSystemConfig) { c.Storage.Local = nil }, true},
		{"negative retention", func(c *SyncSystemConfig) { c.Retention.MaxBackups = -1 }, true},
		{"gzip level out of range", func(c *SyncSystemConfig) {
			c.Compression = CompressionConfig{Enabled: true, Algorithm: CompressionTypeGzip, Level: 12}
		}, true},
		{"zstd level in range", func(c *SyncSystemConfig) {
			c.Compression = CompressionConfig{Enabled: true, Algorithm: CompressionTypeZstd, Level: 12}
		}, false},
		{"encryption without key source", func(c *SyncSystemConfig) { c.Encryption.Enabled = true }, true},
		{"encryption with retriever", func(c *SyncSystemConfig) {
			c.Encryption = EncryptionConfig{Enabled: true, KeyRetriever: func() ([]byte, error) { return nil, nil }}
		}, false},
		{"negative timeout", func(c *SyncSystemConfig) { c.Timeout = -time.Second }, true},
		{"minio missing keys", func(c *SyncSystemConfig) {
			c.Storage = StorageConfig{Provider: StorageProviderMinIO, MinIO: &MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSyncSystemConfig_LoadFromEnvironment(t *testing.T) {
	t.Setenv("BACKUP_STORAGE_PROVIDER", "minio")
	t.Setenv("BACKUP_MINIO_ENDPOINT", "minio.local:9000")
	t.Setenv("BACKUP_MINIO_ACCESS_KEY", "access")
	t.Setenv("BACKUP_MINIO_SECRET_KEY", "secret")
	t.Setenv("BACKUP_MINIO_BUCKET", "jewel-backups")
	t.Setenv("BACKUP_MINIO_USE_SSL", "true")
	t.Setenv("BACKUP_MAX_BACKUPS", "7")
	t.Setenv("BACKUP_KEEP_HISTORY", "true")
	t.Setenv("BACKUP_COMPRESSION_ENABLED", "true")
	t.Setenv("BACKUP_COMPRESSION_ALGORITHM", "zstd")
	t.Setenv("BACKUP_TIMEOUT", "90s")

	var cfg SyncSystemConfig
	cfg.LoadFromEnvironment()
	cfg.SetDefaults()

	if cfg.Storage.Provider != StorageProviderMinIO {
		t.Fatalf("Provider = %s, want MINIO", cfg.Storage.Provider)
	}
	m := cfg.Storage.MinIO
	if m.Endpoint != "minio.local:9000" || m.Bucket != "jewel-backups" || !m.UseSSL {
		t.Errorf("MinIO = %+v", m)
	}
	if m.Region != "us-east-1" || m.TimeoutSeconds != 30 {
		t.Errorf("MinIO defaults not applied: %+v", m)
	}
	if cfg.Retention.MaxBackups != 7 || !cfg.Retention.KeepHistory {
		t.Errorf("Retention = %+v", cfg.Retention)
	}
	if cfg.Compression.Algorithm != CompressionTypeZstd || cfg.Compression.Level != 3 {
		t.Errorf("Compression = %+v", cfg.Compression)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestEncryptionConfig_SetDefaults(t *testing.T) {
	ec := EncryptionConfig{Enabled: true}
	ec.SetDefaults()
	if ec.KeySource != KeySourceEnv || ec.KeyEnvVar != "BACKUP_ENCRYPTION_KEY" {
		t.Errorf("SetDefaults() = %+v", ec)
	}

	pc := EncryptionConfig{Enabled: true, KeySource: KeySourcePassphrase}
	pc.SetDefaults()
	if pc.PassphraseEnvVar != "BACKUP_ENCRYPTION_PASSPHRASE" {
		t.Errorf("SetDefaults() passphrase = %+v", pc)
	}
}

func TestEncryptionConfig_GetEncryptionKeyErrors(t *testing.T) {
	t.Setenv("TEST_SHORT_KEY", "abcd")
	t.Setenv("TEST_BAD_KEY", "not-hex")

	tests := []struct {
		name   string
		config EncryptionConfig
	}{
		{"missing env", EncryptionConfig{Enabled: true, KeySource: KeySourceEnv, KeyEnvVar: "TEST_UNSET_KEY"}},
		{"short key", EncryptionConfig{Enabled: true, KeySource: KeySourceEnv, KeyEnvVar: "TEST_SHORT_KEY"}},
		{"bad hex", EncryptionConfig{Enabled: true, KeySource: KeySourceEnv, KeyEnvVar: "TEST_BAD_KEY"}},
		{"missing file", EncryptionConfig{Enabled: true, KeySource: KeySourceFile, KeyPath: "/nonexistent/key"}},
		{"passphrase source", EncryptionConfig{Enabled: true, KeySource: KeySourcePassphrase}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.config.GetEncryptionKey(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestStorageFactory_CreateObjectStore(t *testing.T) {
	factory := NewStorageFactory()
	ctx := context.Background()

	if got := len(factory.SupportedProviders()); got != 5 {
		t.Errorf("SupportedProviders() = %d providers, want 5", got)
	}

	store, err := factory.CreateObjectStore(ctx, StorageConfig{
		Provider: StorageProviderLocal,
		Local:    &LocalConfig{BasePath: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("CreateObjectStore(LOCAL) error = %v", err)
	}
	if _, ok := store.(*LocalObjectStore); !ok {
		t.Errorf("CreateObjectStore(LOCAL) = %T, want *LocalObjectStore", store)
	}

	minioStore, err := factory.CreateObjectStore(ctx, StorageConfig{
		Provider: StorageProviderMinIO,
		MinIO:    &MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"},
	})
	if err != nil {
		t.Fatalf("CreateObjectStore(MINIO) error = %v", err)
	}
	if _, ok := minioStore.(*MinIOObjectStore); !ok {
		t.Errorf("CreateObjectStore(MINIO) = %T, want *MinIOObjectStore", minioStore)
	}

	s3Store, err := factory.CreateObjectStore(ctx, StorageConfig{
		Provider: StorageProviderS3,
		S3:       &S3Config{Bucket: "b", Region: "eu-west-1", AccessKey: "a", SecretKey: "s"},
	})
	if err != nil {
		t.Fatalf("CreateObjectStore(S3) error = %v", err)
	}
	if got := s3Store.URL("k.xlsx"); got != "https://b.s3.eu-west-1.amazonaws.com/k.xlsx" {
		t.Errorf("S3 URL() = %q", got)
	}

	invalid := []StorageConfig{
		{Provider: "FTP"},
		{Provider: StorageProviderLocal},
		{Provider: StorageProviderAzure, Azure: &AzureConfig{AccountName: "a"}},
		{Provider: StorageProviderGCS, GCS: &GCSConfig{}},
	}
	for _, cfg := range invalid {
		store, err := factory.CreateObjectStore(ctx, cfg)
		if err == nil {
			t.Errorf("CreateObjectStore(%s) expected error", cfg.Provider)
		}
		if store != nil {
			t.Errorf("CreateObjectStore(%s) returned a non-nil store with an error", cfg.Provider)
		}
	}
}
