// Package config loads the storesync configuration file and the environment
// overrides layered on top of it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/backup"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/database"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/display"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/logging"
	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/settings"
)

// EnvPrefix prefixes every environment variable read by the CLI
const EnvPrefix = "STORESYNC"

// Config is the complete storesync configuration
type Config struct {
	Identity settings.Identity       `mapstructure:"identity" yaml:"identity"`
	Database database.DatabaseConfig `mapstructure:"database" yaml:"database"`
	Remote   RemoteConfig            `mapstructure:"remote" yaml:"remote"`
	Export   ExportConfig            `mapstructure:"export" yaml:"export"`
	Logging  LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	Display  display.DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// RemoteConfig enables remote backups on top of the storage settings
type RemoteConfig struct {
	Enabled                 bool `mapstructure:"enabled" yaml:"enabled"`
	backup.SyncSystemConfig `mapstructure:",squash" yaml:",inline"`
}

// ExportConfig controls where local files are written
type ExportConfig struct {
	// Dir receives generated export names
	Dir string `mapstructure:"dir" yaml:"dir"`
	// TempDir holds staged workbooks during an operation
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`
	// StateFile remembers the device id and the last remote backup
	StateFile string `mapstructure:"state_file" yaml:"state_file"`
}

// LoggingConfig mirrors logging.Config in file form
type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"`
	File      string `mapstructure:"file" yaml:"file"`
	AuditFile string `mapstructure:"audit_file" yaml:"audit_file"`
}

// DefaultConfig returns a configuration with every default applied
func DefaultConfig() *Config {
	cfg := &Config{Display: *display.DefaultDisplayConfig()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset values and normalizes enum spellings
func (c *Config) SetDefaults() {
	if c.Identity.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			c.Identity.DeviceName = host
		}
	}

	c.Database.SetDefaults()

	c.Remote.Storage.Provider = backup.StorageProviderType(strings.ToUpper(string(c.Remote.Storage.Provider)))
	c.Remote.Compression.Algorithm = backup.CompressionType(strings.ToUpper(string(c.Remote.Compression.Algorithm)))
	c.Remote.SetDefaults()

	if c.Export.Dir == "" {
		c.Export.Dir = "."
	}
	if c.Export.StateFile == "" {
		c.Export.StateFile = defaultStateFile()
	}

	if c.Logging.Level == "" {
		c.Logging.Level = string(logging.LogLevelNormal)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	c.Display.SetDefaults()
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storesync-state.yaml"
	}
	return filepath.Join(home, ".config", "storesync", "state.yaml")
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs backup.ValidationErrors

	if c.Database.IsConfigured() {
		errs.Merge("database", c.Database.Validate())
	}
	// remote backups are scoped by the identity; local files are not
	if c.Remote.Enabled {
		errs.Merge("identity", c.Identity.Validate())
		errs.Merge("remote", c.Remote.Validate())
	}

	switch logging.LogLevel(c.Logging.Level) {
	case logging.LogLevelQuiet, logging.LogLevelNormal, logging.LogLevelVerbose, logging.LogLevelDebug:
	default:
		errs.Add("logging.level", "must be one of quiet, normal, verbose, debug", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs.Add("logging.format", "must be text or json", c.Logging.Format)
	}

	errs.Merge("display", c.Display.Validate())

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// LoadFromEnvironment applies STORESYNC_* overrides, then the storage level
// BACKUP_* variables. Setting BACKUP_STORAGE_PROVIDER enables remote backups.
func (c *Config) LoadFromEnvironment() {
	setFromEnv(&c.Identity.UserID, "USER_ID")
	setFromEnv(&c.Identity.StoreID, "STORE_ID")
	setFromEnv(&c.Identity.UserMobile, "USER_MOBILE")
	setFromEnv(&c.Identity.DeviceName, "DEVICE_NAME")

	setFromEnv(&c.Database.Host, "DB_HOST")
	setFromEnv(&c.Database.Username, "DB_USER")
	setFromEnv(&c.Database.Password, "DB_PASSWORD")
	setFromEnv(&c.Database.Database, "DB_NAME")
	if val := os.Getenv(EnvPrefix + "_DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Database.Port = port
		}
	}

	setFromEnv(&c.Export.Dir, "EXPORT_DIR")
	setFromEnv(&c.Export.TempDir, "TEMP_DIR")
	setFromEnv(&c.Export.StateFile, "STATE_FILE")
	setFromEnv(&c.Logging.Level, "LOG_LEVEL")

	if os.Getenv("BACKUP_STORAGE_PROVIDER") != "" {
		c.Remote.Enabled = true
	}
	if val := os.Getenv(EnvPrefix + "_REMOTE_ENABLED"); val != "" {
		c.Remote.Enabled = strings.EqualFold(val, "true")
	}
	c.Remote.LoadFromEnvironment()
}

func setFromEnv(target *string, name string) {
	if val := os.Getenv(EnvPrefix + "_" + name); val != "" {
		*target = val
	}
}

// Load decodes the configuration held by v on top of the defaults, applies
// the environment and validates the result
func Load(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return finish(cfg)
}

// LoadFile reads a YAML configuration file without viper, as used by tests
// and by tools embedding the engine
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.LoadFromEnvironment()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML. The file may hold credentials so it
// is only readable by the owner.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create configuration directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0600)
}

// LoggerConfig converts the logging section for logging.NewLogger
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:   logging.LogLevel(c.Logging.Level),
		Format:  c.Logging.Format,
		LogFile: c.Logging.File,
	}
}

// GenerateDefaultConfigYAML returns a commented starting configuration
func GenerateDefaultConfigYAML() string {
	return `# storesync configuration
# Every value can be overridden with STORESYNC_* environment variables,
# storage settings also with BACKUP_* variables.

identity:
  user_id: ""          # STORESYNC_USER_ID
  store_id: ""         # STORESYNC_STORE_ID
  user_mobile: ""      # STORESYNC_USER_MOBILE, scopes remote backups
  device_name: ""      # defaults to the host name

database:
  host: localhost
  port: 3306
  username: root
  password: ""
  database: jewelvault
  timeout: 30s

remote:
  enabled: false
  storage:
    provider: local    # local, s3, gcs, azure or minio
    local:
      base_path: ./remote-backups
    # s3:
    #   bucket: my-backups
    #   region: us-east-1
    # minio:
    #   endpoint: localhost:9000
    #   bucket: storesync
    #   use_ssl: false
  retention:
    max_backups: 0     # 0 keeps whatever the scope holds
    keep_history: false
  compression:
    enabled: false
    algorithm: gzip    # gzip, lz4 or zstd
    level: 6
  encryption:
    enabled: false
    key_source: env    # env, file or passphrase
    key_env_var: BACKUP_ENCRYPTION_KEY
  timeout: 5m

export:
  dir: .
  temp_dir: ""         # system temp directory when empty
  state_file: ""       # ~/.config/storesync/state.yaml when empty

logging:
  level: normal        # quiet, normal, verbose or debug
  format: text         # text or json
  file: ""
  audit_file: ""

display:
  color_enabled: true
  theme: auto          # auto, dark, light or high-contrast
  output_format: table # table, json, yaml or compact
  show_progress: true
  table_style: default # default, rounded or minimal
  max_table_width: 120
`
}
