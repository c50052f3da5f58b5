package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, backup.StorageProviderLocal, cfg.Remote.Storage.Provider)
	assert.False(t, cfg.Remote.Enabled)
	assert.Equal(t, ".", cfg.Export.Dir)
	assert.NotEmpty(t, cfg.Export.StateFile)
	assert.Equal(t, "normal", cfg.Logging.Level)
	assert.Equal(t, "table", cfg.Display.OutputFormat)
	assert.NoError(t, cfg.Validate(), "defaults must validate without an identity")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr []string
	}{
		{
			name: "remote requires identity",
			modify: func(c *Config) {
				c.Remote.Enabled = true
			},
			wantErr: []string{"user_id is required"},
		},
		{
			name: "remote with identity",
			modify: func(c *Config) {
				c.Remote.Enabled = true
				c.Identity.UserID, c.Identity.StoreID, c.Identity.UserMobile = "u1", "s1", "9000000000"
			},
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: []string{"logging.level"},
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: []string{"logging.format"},
		},
		{
			name: "database checked once configured",
			modify: func(c *Config) {
				c.Database.Host = "localhost"
				c.Database.Database = "jewelvault"
			},
			wantErr: []string{"username is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verrs backup.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			joined := ""
			for _, v := range verrs {
				joined += v.Field + ": " + v.Message + "\n"
			}
			for _, want := range tt.wantErr {
				assert.Contains(t, joined, want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
identity:
  user_id: u1
  store_id: s1
  user_mobile: "9000000000"
  device_name: counter-1
remote:
  enabled: true
  storage:
    provider: local
    local:
      base_path: /tmp/remote
  retention:
    max_backups: 3
  compression:
    enabled: true
    algorithm: zstd
  timeout: 2m
logging:
  level: verbose
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "counter-1", cfg.Identity.DeviceName)
	assert.True(t, cfg.Remote.Enabled)
	assert.Equal(t, backup.StorageProviderLocal, cfg.Remote.Storage.Provider, "provider names are case-insensitive")
	assert.Equal(t, "/tmp/remote", cfg.Remote.Storage.Local.BasePath)
	assert.Equal(t, 3, cfg.Remote.Retention.MaxBackups)
	assert.Equal(t, backup.CompressionTypeZstd, cfg.Remote.Compression.Algorithm)
	assert.Equal(t, 2*time.Minute, cfg.Remote.Timeout)
	assert.Equal(t, logging.LogLevelVerbose, cfg.LoggerConfig().Level)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")

	_, err = LoadFile(writeConfig(t, "identity: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse")

	cfg, err := LoadFile(writeConfig(t, "remote:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "invalid configuration")
	assert.NotNil(t, cfg, "the decoded configuration is returned for diagnostics")
}

func TestLoadWithViper(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
identity:
  store_id: s1
export:
  dir: /srv/exports
display:
  output_format: json
`)))
	v.Set("identity.user_id", "from-flag")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Identity.UserID)
	assert.Equal(t, "s1", cfg.Identity.StoreID)
	assert.Equal(t, "/srv/exports", cfg.Export.Dir)
	assert.Equal(t, "json", cfg.Display.OutputFormat)
	assert.Equal(t, 120, cfg.Display.MaxTableWidth, "defaults survive a partial file")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORESYNC_USER_ID", "env-user")
	t.Setenv("STORESYNC_STORE_ID", "env-store")
	t.Setenv("STORESYNC_USER_MOBILE", "9111111111")
	t.Setenv("STORESYNC_DB_PORT", "3307")
	t.Setenv("STORESYNC_LOG_LEVEL", "debug")
	t.Setenv("BACKUP_STORAGE_PROVIDER", "minio")
	t.Setenv("BACKUP_MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("BACKUP_MINIO_BUCKET", "storesync")

	cfg := DefaultConfig()
	cfg.LoadFromEnvironment()
	cfg.SetDefaults()

	assert.Equal(t, "env-user", cfg.Identity.UserID)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Remote.Enabled, "a storage provider in the environment enables remote backups")
	assert.Equal(t, backup.StorageProviderMinIO, cfg.Remote.Storage.Provider)
	require.NotNil(t, cfg.Remote.Storage.MinIO)
	assert.Equal(t, "localhost:9000", cfg.Remote.Storage.MinIO.Endpoint)

	t.Setenv("STORESYNC_REMOTE_ENABLED", "false")
	cfg.LoadFromEnvironment()
	assert.False(t, cfg.Remote.Enabled)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Identity.UserID = "u1"
	cfg.Remote.Retention.MaxBackups = 5

	path := filepath.Join(t.TempDir(), "nested", "storesync.yaml")
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "u1", loaded.Identity.UserID)
	assert.Equal(t, 5, loaded.Remote.Retention.MaxBackups)
}

func TestGenerateDefaultConfigYAML(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, GenerateDefaultConfigYAML()))
	require.NoError(t, err, "the generated file must load as is")

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "jewelvault", cfg.Database.Database)
	assert.Equal(t, backup.CompressionTypeGzip, cfg.Remote.Compression.Algorithm)
	assert.Equal(t, 5*time.Minute, cfg.Remote.Timeout)
}
