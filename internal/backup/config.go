package backup

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Where the AES key comes from
const (
	KeySourceEnv        = "env"
	KeySourceFile       = "file"
	KeySourcePassphrase = "passphrase"
)

const (
	defaultRemoteTimeout        = 5 * time.Minute
	defaultCompressionThreshold = 1024
	defaultLocalRemotePath      = "./remote-backups"
	defaultRegion               = "us-east-1"
)

// SyncSystemConfig is the remote side of the sync engine: where backups go
// and how the workbook is encoded before upload
type SyncSystemConfig struct {
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	Retention   RetentionConfig   `yaml:"retention" mapstructure:"retention"`
	Compression CompressionConfig `yaml:"compression" mapstructure:"compression"`
	Encryption  EncryptionConfig  `yaml:"encryption" mapstructure:"encryption"`
	Timeout     time.Duration     `yaml:"timeout" mapstructure:"timeout"`
}

type RetentionConfig struct {
	// MaxBackups prunes the scope down to this many objects after an upload.
	// Zero disables pruning.
	MaxBackups int `yaml:"max_backups" mapstructure:"max_backups"`
	// KeepHistory skips the delete-before-upload step so older backups remain
	KeepHistory bool `yaml:"keep_history" mapstructure:"keep_history"`
}

type CompressionConfig struct {
	Enabled   bool            `yaml:"enabled" mapstructure:"enabled"`
	Algorithm CompressionType `yaml:"algorithm" mapstructure:"algorithm"`
	Level     int             `yaml:"level" mapstructure:"level"`
	// Threshold is the smallest workbook, in bytes, worth compressing
	Threshold int64 `yaml:"threshold" mapstructure:"threshold"`
}

type EncryptionConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	KeySource        string `yaml:"key_source" mapstructure:"key_source"`
	KeyPath          string `yaml:"key_path" mapstructure:"key_path"`
	KeyEnvVar        string `yaml:"key_env_var" mapstructure:"key_env_var"`
	PassphraseEnvVar string `yaml:"passphrase_env_var" mapstructure:"passphrase_env_var"`

	// KeyRetriever replaces the key lookup; tests use it
	KeyRetriever func() ([]byte, error) `yaml:"-" mapstructure:"-"`
}

func (c *SyncSystemConfig) Validate() error {
	var errs ValidationErrors
	errs.Merge("storage", c.Storage.Validate())
	errs.Merge("retention", c.Retention.Validate())
	errs.Merge("compression", c.Compression.Validate())
	errs.Merge("encryption", c.Encryption.Validate())
	if c.Timeout < 0 {
		errs.Add("timeout", "must not be negative", c.Timeout)
	}
	return errs.orNil()
}

func (c *SyncSystemConfig) SetDefaults() {
	c.Storage.SetDefaults()
	c.Compression.SetDefaults()
	c.Encryption.SetDefaults()
	if c.Timeout == 0 {
		c.Timeout = defaultRemoteTimeout
	}
}

// LoadFromEnvironment applies the BACKUP_* variables over the file values
func (c *SyncSystemConfig) LoadFromEnvironment() {
	c.Storage.LoadFromEnvironment()
	c.Retention.LoadFromEnvironment()
	c.Compression.LoadFromEnvironment()
	c.Encryption.LoadFromEnvironment()
	envDuration(&c.Timeout, "BACKUP_TIMEOUT")
}

func (rc *RetentionConfig) Validate() error {
	var errs ValidationErrors
	if rc.MaxBackups < 0 {
		errs.Add("max_backups", "must not be negative", rc.MaxBackups)
	}
	return errs.orNil()
}

func (rc *RetentionConfig) LoadFromEnvironment() {
	envInt(&rc.MaxBackups, "BACKUP_MAX_BACKUPS")
	envBool(&rc.KeepHistory, "BACKUP_KEEP_HISTORY")
}

// Validate checks the level against the range of the chosen compressor
func (cc *CompressionConfig) Validate() error {
	if !cc.Enabled {
		return nil
	}
	var errs ValidationErrors
	if !isValidCompressionType(cc.Algorithm) {
		errs.Add("algorithm", "must be one of NONE, GZIP, LZ4, ZSTD", cc.Algorithm)
	} else if c, ok := defaultCompressors[cc.Algorithm]; ok {
		if lo, hi := c.LevelRange(); cc.Level < lo || cc.Level > hi {
			errs.Add("level", fmt.Sprintf("%s level must be between %d and %d", strings.ToLower(string(cc.Algorithm)), lo, hi), cc.Level)
		}
	}
	if cc.Threshold < 0 {
		errs.Add("threshold", "must not be negative", cc.Threshold)
	}
	return errs.orNil()
}

// SetDefaults picks gzip and the compressor's default level when
// compression is on
func (cc *CompressionConfig) SetDefaults() {
	if cc.Enabled {
		if cc.Algorithm == "" {
			cc.Algorithm = CompressionTypeGzip
		}
		if c, ok := defaultCompressors[cc.Algorithm]; ok && cc.Level == 0 {
			cc.Level = c.DefaultLevel()
		}
	}
	if cc.Threshold == 0 {
		cc.Threshold = defaultCompressionThreshold
	}
}

func (cc *CompressionConfig) LoadFromEnvironment() {
	envBool(&cc.Enabled, "BACKUP_COMPRESSION_ENABLED")
	if val := os.Getenv("BACKUP_COMPRESSION_ALGORITHM"); val != "" {
		cc.Algorithm = CompressionType(strings.ToUpper(val))
	}
	envInt(&cc.Level, "BACKUP_COMPRESSION_LEVEL")
	if val := os.Getenv("BACKUP_COMPRESSION_THRESHOLD"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cc.Threshold = n
		}
	}
}

// Validate requires the setting that goes with the key source.
// A KeyRetriever satisfies every source.
func (ec *EncryptionConfig) Validate() error {
	if !ec.Enabled || ec.KeyRetriever != nil {
		return nil
	}
	var errs ValidationErrors
	switch ec.KeySource {
	case "":
		errs.Add("key_source", "required when encryption is enabled", ec.KeySource)
	case KeySourceEnv:
		if ec.KeyEnvVar == "" {
			errs.Add("key_env_var", "name of the variable holding the hex key is required", ec.KeyEnvVar)
		}
	case KeySourceFile:
		if ec.KeyPath == "" {
			errs.Add("key_path", "path of the 32 byte key file is required", ec.KeyPath)
		}
	case KeySourcePassphrase:
		if ec.PassphraseEnvVar == "" {
			errs.Add("passphrase_env_var", "name of the variable holding the passphrase is required", ec.PassphraseEnvVar)
		}
	default:
		errs.Add("key_source", "must be env, file or passphrase", ec.KeySource)
	}
	return errs.orNil()
}

func (ec *EncryptionConfig) SetDefaults() {
	if ec.Enabled && ec.KeySource == "" {
		ec.KeySource = KeySourceEnv
	}
	switch ec.KeySource {
	case KeySourceEnv:
		if ec.KeyEnvVar == "" {
			ec.KeyEnvVar = "BACKUP_ENCRYPTION_KEY"
		}
	case KeySourcePassphrase:
		if ec.PassphraseEnvVar == "" {
			ec.PassphraseEnvVar = "BACKUP_ENCRYPTION_PASSPHRASE"
		}
	}
}

func (ec *EncryptionConfig) LoadFromEnvironment() {
	envBool(&ec.Enabled, "BACKUP_ENCRYPTION_ENABLED")
	if val := os.Getenv("BACKUP_ENCRYPTION_KEY_SOURCE"); val != "" {
		ec.KeySource = strings.ToLower(val)
	}
	envString(&ec.KeyPath, "BACKUP_ENCRYPTION_KEY_PATH")
	envString(&ec.KeyEnvVar, "BACKUP_ENCRYPTION_KEY_ENV_VAR")
	envString(&ec.PassphraseEnvVar, "BACKUP_ENCRYPTION_PASSPHRASE_ENV_VAR")
}

// GetEncryptionKey returns the raw AES-256 key for the env and file
// sources. The env variable holds hex, the file holds the raw bytes.
func (ec *EncryptionConfig) GetEncryptionKey() ([]byte, error) {
	if !ec.Enabled {
		return nil, nil
	}
	if ec.KeyRetriever != nil {
		return ec.KeyRetriever()
	}

	var key []byte
	switch ec.KeySource {
	case KeySourceEnv:
		encoded := strings.TrimSpace(os.Getenv(ec.KeyEnvVar))
		if encoded == "" {
			return nil, fmt.Errorf("%s is not set", ec.KeyEnvVar)
		}
		decoded, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%s is not a hex encoded key: %w", ec.KeyEnvVar, err)
		}
		key = decoded
	case KeySourceFile:
		raw, err := os.ReadFile(ec.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("cannot read key file: %w", err)
		}
		key = raw
	default:
		return nil, fmt.Errorf("key source %q does not provide a raw key", ec.KeySource)
	}

	if len(key) != keySize {
		return nil, fmt.Errorf("AES-256 needs a %d byte key, got %d bytes", keySize, len(key))
	}
	return key, nil
}

// GetPassphrase reads the passphrase the key is derived from
func (ec *EncryptionConfig) GetPassphrase() (string, error) {
	if passphrase := os.Getenv(ec.PassphraseEnvVar); passphrase != "" {
		return passphrase, nil
	}
	return "", fmt.Errorf("%s is not set", ec.PassphraseEnvVar)
}

// SetDefaults creates the section of the selected provider if the file
// omitted it
func (sc *StorageConfig) SetDefaults() {
	if sc.Provider == "" {
		sc.Provider = StorageProviderLocal
	}
	sc.ensureSection()

	switch sc.Provider {
	case StorageProviderLocal:
		if sc.Local.BasePath == "" {
			sc.Local.BasePath = defaultLocalRemotePath
		}
		if sc.Local.Permissions == 0 {
			sc.Local.Permissions = 0755
		}
	case StorageProviderS3:
		if sc.S3.Region == "" {
			sc.S3.Region = defaultRegion
		}
	case StorageProviderGCS:
		if sc.GCS.CredentialsPath == "" {
			sc.GCS.CredentialsPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		}
	case StorageProviderMinIO:
		if sc.MinIO.Region == "" {
			sc.MinIO.Region = defaultRegion
		}
		if sc.MinIO.TimeoutSeconds == 0 {
			sc.MinIO.TimeoutSeconds = 30
		}
	}
}

func (sc *StorageConfig) ensureSection() {
	switch sc.Provider {
	case StorageProviderLocal:
		if sc.Local == nil {
			sc.Local = &LocalConfig{}
		}
	case StorageProviderS3:
		if sc.S3 == nil {
			sc.S3 = &S3Config{}
		}
	case StorageProviderGCS:
		if sc.GCS == nil {
			sc.GCS = &GCSConfig{}
		}
	case StorageProviderAzure:
		if sc.Azure == nil {
			sc.Azure = &AzureConfig{}
		}
	case StorageProviderMinIO:
		if sc.MinIO == nil {
			sc.MinIO = &MinIOConfig{}
		}
	}
}

// LoadFromEnvironment reads BACKUP_STORAGE_PROVIDER and the variables of
// that provider only
func (sc *StorageConfig) LoadFromEnvironment() {
	if val := os.Getenv("BACKUP_STORAGE_PROVIDER"); val != "" {
		sc.Provider = StorageProviderType(strings.ToUpper(val))
	}
	sc.ensureSection()

	switch sc.Provider {
	case StorageProviderLocal:
		envString(&sc.Local.BasePath, "BACKUP_LOCAL_BASE_PATH")
		if val := os.Getenv("BACKUP_LOCAL_PERMISSIONS"); val != "" {
			if mode, err := strconv.ParseUint(val, 8, 32); err == nil {
				sc.Local.Permissions = os.FileMode(mode)
			}
		}
	case StorageProviderS3:
		envString(&sc.S3.Bucket, "BACKUP_S3_BUCKET")
		envString(&sc.S3.Region, "BACKUP_S3_REGION")
		envString(&sc.S3.AccessKey, "BACKUP_S3_ACCESS_KEY")
		envString(&sc.S3.SecretKey, "BACKUP_S3_SECRET_KEY")
		envString(&sc.S3.Endpoint, "BACKUP_S3_ENDPOINT")
	case StorageProviderAzure:
		envString(&sc.Azure.AccountName, "BACKUP_AZURE_ACCOUNT_NAME")
		envString(&sc.Azure.AccountKey, "BACKUP_AZURE_ACCOUNT_KEY")
		envString(&sc.Azure.ContainerName, "BACKUP_AZURE_CONTAINER_NAME")
	case StorageProviderGCS:
		envString(&sc.GCS.Bucket, "BACKUP_GCS_BUCKET")
		envString(&sc.GCS.CredentialsPath, "BACKUP_GCS_CREDENTIALS_PATH")
		envString(&sc.GCS.ProjectID, "BACKUP_GCS_PROJECT_ID")
	case StorageProviderMinIO:
		envString(&sc.MinIO.Endpoint, "BACKUP_MINIO_ENDPOINT")
		envString(&sc.MinIO.AccessKey, "BACKUP_MINIO_ACCESS_KEY")
		envString(&sc.MinIO.SecretKey, "BACKUP_MINIO_SECRET_KEY")
		envString(&sc.MinIO.Bucket, "BACKUP_MINIO_BUCKET")
		envString(&sc.MinIO.Region, "BACKUP_MINIO_REGION")
		envBool(&sc.MinIO.UseSSL, "BACKUP_MINIO_USE_SSL")
	}
}

// env helpers leave target untouched when the variable is unset or does
// not parse

func envString(target *string, name string) {
	if val := os.Getenv(name); val != "" {
		*target = val
	}
}

func envBool(target *bool, name string) {
	if val := os.Getenv(name); val != "" {
		*target = strings.EqualFold(val, "true")
	}
}

func envInt(target *int, name string) {
	if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
		*target = n
	}
}

func envDuration(target *time.Duration, name string) {
	if d, err := time.ParseDuration(os.Getenv(name)); err == nil {
		*target = d
	}
}
