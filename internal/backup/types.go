package backup

import (
	"os"
	"strings"
	"time"
)

// StorageConfig defines storage provider configuration
type StorageConfig struct {
	Provider StorageProviderType `yaml:"provider" mapstructure:"provider"`
	Local    *LocalConfig        `yaml:"local,omitempty" mapstructure:"local"`
	S3       *S3Config           `yaml:"s3,omitempty" mapstructure:"s3"`
	Azure    *AzureConfig        `yaml:"azure,omitempty" mapstructure:"azure"`
	GCS      *GCSConfig          `yaml:"gcs,omitempty" mapstructure:"gcs"`
	MinIO    *MinIOConfig        `yaml:"minio,omitempty" mapstructure:"minio"`
}

// LocalConfig for local file system storage
type LocalConfig struct {
	BasePath    string      `yaml:"base_path" mapstructure:"base_path"`
	Permissions os.FileMode `yaml:"permissions" mapstructure:"permissions"`
}

// S3Config for Amazon S3 storage. Endpoint is only set for S3 compatible services.
type S3Config struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Endpoint  string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `yaml:"account_name" mapstructure:"account_name"`
	AccountKey    string `yaml:"account_key" mapstructure:"account_key"`
	ContainerName string `yaml:"container_name" mapstructure:"container_name"`
}

// GCSConfig for Google Cloud Storage. Without CredentialsPath the
// application default credentials are used.
type GCSConfig struct {
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
}

// MinIOConfig for MinIO and other S3 compatible servers
type MinIOConfig struct {
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	UseSSL         bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// ObjectInfo describes one stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BackupInfo describes a backup held in remote storage for one scope
type BackupInfo struct {
	FileName    string          `json:"file_name" yaml:"file_name"`
	UploadDate  time.Time       `json:"upload_date" yaml:"upload_date"`
	SizeBytes   int64           `json:"size_bytes" yaml:"size_bytes"`
	DownloadURL string          `json:"download_url" yaml:"download_url"`
	Compression CompressionType `json:"compression" yaml:"compression"`
	Encrypted   bool            `json:"encrypted" yaml:"encrypted"`
}

type CompressionType string

const (
	CompressionTypeNone CompressionType = "NONE"
	CompressionTypeGzip CompressionType = "GZIP"
	CompressionTypeLZ4  CompressionType = "LZ4"
	CompressionTypeZstd CompressionType = "ZSTD"
)

// Extension is the object name suffix that marks the algorithm
func (ct CompressionType) Extension() string {
	switch ct {
	case CompressionTypeGzip:
		return ".gz"
	case CompressionTypeLZ4:
		return ".lz4"
	case CompressionTypeZstd:
		return ".zst"
	default:
		return ""
	}
}

func isValidCompressionType(ct CompressionType) bool {
	switch ct {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}

type StorageProviderType string

const (
	StorageProviderLocal StorageProviderType = "LOCAL"
	StorageProviderS3    StorageProviderType = "S3"
	StorageProviderAzure StorageProviderType = "AZURE"
	StorageProviderGCS   StorageProviderType = "GCS"
	StorageProviderMinIO StorageProviderType = "MINIO"
)

func isValidStorageProviderType(pt StorageProviderType) bool {
	switch pt {
	case StorageProviderLocal, StorageProviderS3, StorageProviderAzure, StorageProviderGCS, StorageProviderMinIO:
		return true
	default:
		return false
	}
}

// Validate checks the provider name and the section that goes with it
func (sc *StorageConfig) Validate() error {
	var errs ValidationErrors
	if !isValidStorageProviderType(sc.Provider) {
		errs.Add("provider", "must be one of LOCAL, S3, AZURE, GCS, MINIO", sc.Provider)
		return errs
	}

	section := strings.ToLower(string(sc.Provider))
	var v interface{ Validate() error }
	switch sc.Provider {
	case StorageProviderLocal:
		if sc.Local != nil {
			v = sc.Local
		}
	case StorageProviderS3:
		if sc.S3 != nil {
			v = sc.S3
		}
	case StorageProviderAzure:
		if sc.Azure != nil {
			v = sc.Azure
		}
	case StorageProviderGCS:
		if sc.GCS != nil {
			v = sc.GCS
		}
	case StorageProviderMinIO:
		if sc.MinIO != nil {
			v = sc.MinIO
		}
	}
	if v == nil {
		errs.Add(section, "section is required for the selected provider", nil)
	} else {
		errs.Merge(section, v.Validate())
	}
	return errs.orNil()
}

// requireFields adds one error per empty value, in argument order
func requireFields(errs *ValidationErrors, fields ...[2]string) {
	for _, f := range fields {
		if f[1] == "" {
			errs.Add(f[0], "is required", f[1])
		}
	}
}

func (lc *LocalConfig) Validate() error {
	var errs ValidationErrors
	requireFields(&errs, [2]string{"base_path", lc.BasePath})
	return errs.orNil()
}

func (s3c *S3Config) Validate() error {
	var errs ValidationErrors
	requireFields(&errs,
		[2]string{"bucket", s3c.Bucket},
		[2]string{"region", s3c.Region},
		[2]string{"access_key", s3c.AccessKey},
		[2]string{"secret_key", s3c.SecretKey},
	)
	return errs.orNil()
}

func (ac *AzureConfig) Validate() error {
	var errs ValidationErrors
	requireFields(&errs,
		[2]string{"account_name", ac.AccountName},
		[2]string{"account_key", ac.AccountKey},
		[2]string{"container_name", ac.ContainerName},
	)
	return errs.orNil()
}

func (gc *GCSConfig) Validate() error {
	var errs ValidationErrors
	requireFields(&errs, [2]string{"bucket", gc.Bucket})
	return errs.orNil()
}

func (mc *MinIOConfig) Validate() error {
	var errs ValidationErrors
	requireFields(&errs,
		[2]string{"endpoint", mc.Endpoint},
		[2]string{"bucket", mc.Bucket},
		[2]string{"access_key", mc.AccessKey},
		[2]string{"secret_key", mc.SecretKey},
	)
	if mc.TimeoutSeconds < 0 {
		errs.Add("timeout_seconds", "must not be negative", mc.TimeoutSeconds)
	}
	return errs.orNil()
}
