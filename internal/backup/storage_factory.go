package backup

import (
	"context"
	"fmt"
)

// StorageFactory creates object stores based on configuration
type StorageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() *StorageFactory {
	return &StorageFactory{}
}

// CreateObjectStore creates an object store based on the storage configuration
func (sf *StorageFactory) CreateObjectStore(ctx context.Context, config StorageConfig) (ObjectStore, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigurationError("invalid storage configuration", err)
	}

	switch config.Provider {
	case StorageProviderLocal:
		store, err := NewLocalObjectStore(config.Local)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageProviderS3:
		store, err := NewS3ObjectStore(config.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageProviderAzure:
		store, err := NewAzureObjectStore(config.Azure)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageProviderGCS:
		store, err := NewGCSObjectStore(ctx, config.GCS)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageProviderMinIO:
		store, err := NewMinIOObjectStore(config.MinIO)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, NewConfigurationError(fmt.Sprintf("unsupported storage provider: %s", config.Provider), nil)
	}
}

// SupportedProviders returns the storage provider types this build can create
func (sf *StorageFactory) SupportedProviders() []StorageProviderType {
	return []StorageProviderType{
		StorageProviderLocal,
		StorageProviderS3,
		StorageProviderAzure,
		StorageProviderGCS,
		StorageProviderMinIO,
	}
}

// ValidateStorageConfig validates a storage configuration without creating the store
func (sf *StorageFactory) ValidateStorageConfig(config StorageConfig) error {
	return config.Validate()
}
