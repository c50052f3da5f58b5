package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

// InitializationResult is the outcome of a readiness check
type InitializationResult struct {
	Success          bool     `json:"success" yaml:"success"`
	ConfigValid      bool     `json:"config_valid" yaml:"config_valid"`
	DirectoriesOK    bool     `json:"directories_ok" yaml:"directories_ok"`
	StorageReady     bool     `json:"storage_ready" yaml:"storage_ready"`
	Warnings         []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors           []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	RecommendedFixes []string `json:"recommended_fixes,omitempty" yaml:"recommended_fixes,omitempty"`
}

// Initializer checks that a configuration can actually run sync operations:
// directories are writable, credentials are present and the remote store
// answers
type Initializer struct {
	config  *Config
	factory *backup.StorageFactory
	logger  *logging.Logger
}

// NewInitializer creates an initializer for cfg
func NewInitializer(cfg *Config, logger *logging.Logger) *Initializer {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Initializer{config: cfg, factory: backup.NewStorageFactory(), logger: logger}
}

// Initialize runs every check. Problems are reported in the result; the
// error return is reserved for a nil configuration.
func (in *Initializer) Initialize(ctx context.Context) (*InitializationResult, error) {
	if in.config == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	result := &InitializationResult{
		Success:       true,
		ConfigValid:   true,
		DirectoriesOK: true,
		StorageReady:  true,
	}

	if err := in.config.Validate(); err != nil {
		result.fail(&result.ConfigValid, fmt.Sprintf("Configuration validation failed: %v", err))
	}

	in.checkDirectories(result)

	if in.config.Remote.Enabled {
		in.checkCredentials(result)
		if result.ConfigValid {
			in.checkStorage(ctx, result)
		}
	} else {
		result.StorageReady = false
		result.Warnings = append(result.Warnings, "Remote backups are disabled")
		result.RecommendedFixes = append(result.RecommendedFixes, "Set remote.enabled: true and configure remote.storage to use backup and restore")
	}

	in.logger.WithFields(map[string]interface{}{
		"success":  result.Success,
		"warnings": len(result.Warnings),
		"errors":   len(result.Errors),
	}).Debug("Readiness check finished")

	return result, nil
}

func (r *InitializationResult) fail(flag *bool, message string) {
	*flag = false
	r.Success = false
	r.Errors = append(r.Errors, message)
}

// checkDirectories creates the working directories and probes write access
func (in *Initializer) checkDirectories(result *InitializationResult) {
	dirs := map[string]string{
		"export directory": in.config.Export.Dir,
		"state directory":  filepath.Dir(in.config.Export.StateFile),
	}
	if in.config.Export.TempDir != "" {
		dirs["temp directory"] = in.config.Export.TempDir
	}
	if in.config.Remote.Enabled && in.config.Remote.Storage.Provider == backup.StorageProviderLocal && in.config.Remote.Storage.Local != nil {
		dirs["local backup directory"] = in.config.Remote.Storage.Local.BasePath
	}

	for name, dir := range dirs {
		if err := probeWritable(dir); err != nil {
			result.fail(&result.DirectoriesOK, fmt.Sprintf("The %s %s is not writable: %v", name, dir, err))
		}
	}
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".storesync-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// checkCredentials warns about credentials the SDKs would look up implicitly
func (in *Initializer) checkCredentials(result *InitializationResult) {
	storage := in.config.Remote.Storage
	warn := func(msg, fix string) {
		result.Warnings = append(result.Warnings, msg)
		result.RecommendedFixes = append(result.RecommendedFixes, fix)
	}

	switch storage.Provider {
	case backup.StorageProviderS3:
		if storage.S3 != nil && storage.S3.AccessKey == "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
			warn("AWS credentials are not configured", "Set remote.storage.s3.access_key or export AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
		}
	case backup.StorageProviderGCS:
		if storage.GCS != nil && storage.GCS.CredentialsPath == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			warn("Google Cloud credentials are not configured", "Export GOOGLE_APPLICATION_CREDENTIALS=/path/to/credentials.json")
		} else if storage.GCS != nil && storage.GCS.CredentialsPath != "" {
			if _, err := os.Stat(storage.GCS.CredentialsPath); err != nil {
				warn(fmt.Sprintf("GCS credentials file does not exist: %s", storage.GCS.CredentialsPath), "Point remote.storage.gcs.credentials_path at a service account key")
			}
		}
	case backup.StorageProviderMinIO:
		if storage.MinIO != nil && !storage.MinIO.UseSSL {
			warn("MinIO traffic is not encrypted", "Set remote.storage.minio.use_ssl: true for servers outside the local network")
		}
	}

	enc := in.config.Remote.Encryption
	if enc.Enabled && enc.KeySource == backup.KeySourceEnv && os.Getenv(enc.KeyEnvVar) == "" {
		warn(fmt.Sprintf("Encryption key environment variable %s is not set", enc.KeyEnvVar),
			fmt.Sprintf("export %s=<64 hex characters>", enc.KeyEnvVar))
	}
}

// checkStorage connects to the configured object store
func (in *Initializer) checkStorage(ctx context.Context, result *InitializationResult) {
	store, err := in.factory.CreateObjectStore(ctx, in.config.Remote.Storage)
	if err != nil {
		result.fail(&result.StorageReady, fmt.Sprintf("Storage initialization failed: %v", err))
		return
	}
	if err := store.HealthCheck(ctx); err != nil {
		result.fail(&result.StorageReady, fmt.Sprintf("Storage health check failed: %v", err))
		if backup.IsRetryable(err) {
			result.RecommendedFixes = append(result.RecommendedFixes, "Check network access to the storage endpoint and retry")
		}
	}
}
