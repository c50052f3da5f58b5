package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup"
)

func readyConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Identity.UserID, cfg.Identity.StoreID, cfg.Identity.UserMobile = "u1", "s1", "9000000000"
	cfg.Export.Dir = filepath.Join(root, "exports")
	cfg.Export.StateFile = filepath.Join(root, "state", "state.yaml")
	cfg.Remote.Enabled = true
	cfg.Remote.Storage = backup.StorageConfig{
		Provider: backup.StorageProviderLocal,
		Local:    &backup.LocalConfig{BasePath: filepath.Join(root, "remote")},
	}
	return cfg
}

func TestInitializeLocalStorage(t *testing.T) {
	cfg := readyConfig(t)

	result, err := NewInitializer(cfg, nil).Initialize(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success, "errors: %v", result.Errors)
	assert.True(t, result.ConfigValid)
	assert.True(t, result.DirectoriesOK)
	assert.True(t, result.StorageReady)
	assert.DirExists(t, cfg.Export.Dir)
	assert.DirExists(t, filepath.Dir(cfg.Export.StateFile))

	entries, err := os.ReadDir(cfg.Export.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe files are removed")
}

func TestInitializeRemoteDisabled(t *testing.T) {
	cfg := readyConfig(t)
	cfg.Remote.Enabled = false

	result, err := NewInitializer(cfg, nil).Initialize(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.StorageReady)
	assert.Contains(t, result.Warnings, "Remote backups are disabled")
}

func TestInitializeInvalidConfig(t *testing.T) {
	cfg := readyConfig(t)
	cfg.Identity.UserMobile = ""

	result, err := NewInitializer(cfg, nil).Initialize(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.ConfigValid)
	assert.True(t, result.StorageReady, "storage is not probed with an invalid configuration")
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "Configuration validation failed")
}

func TestInitializeUnwritableDirectory(t *testing.T) {
	cfg := readyConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.Export.Dir = filepath.Join(blocker, "exports")

	result, err := NewInitializer(cfg, nil).Initialize(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.DirectoriesOK)
	assert.True(t, strings.Contains(strings.Join(result.Errors, "\n"), "export directory"))
}

func TestInitializeCredentialWarnings(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("TEST_STORESYNC_KEY", "")

	cfg := readyConfig(t)
	cfg.Remote.Storage = backup.StorageConfig{
		Provider: backup.StorageProviderS3,
		S3:       &backup.S3Config{Bucket: "b", Region: "us-east-1"},
	}
	cfg.Remote.Encryption = backup.EncryptionConfig{Enabled: true, KeySource: backup.KeySourceEnv, KeyEnvVar: "TEST_STORESYNC_KEY"}

	in := NewInitializer(cfg, nil)
	result := &InitializationResult{Success: true}
	in.checkCredentials(result)

	assert.Contains(t, result.Warnings, "AWS credentials are not configured")
	assert.Contains(t, result.Warnings, "Encryption key environment variable TEST_STORESYNC_KEY is not set")
	assert.Len(t, result.RecommendedFixes, 2)
	assert.True(t, result.Success, "credential problems are warnings")
}

func TestInitializeNilConfig(t *testing.T) {
	_, err := NewInitializer(nil, nil).Initialize(context.Background())
	assert.Error(t, err)
}
