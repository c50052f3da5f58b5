package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

const azureUploadBufferSize = 2 * 1024 * 1024

// AzureObjectStore implements ObjectStore for Azure Blob Storage
type AzureObjectStore struct {
	containerURL  azblob.ContainerURL
	accountName   string
	containerName string
}

// NewAzureObjectStore creates a new AzureObjectStore instance
func NewAzureObjectStore(config *AzureConfig) (*AzureObjectStore, error) {
	if config == nil {
		return nil, NewValidationError("Azure storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid Azure storage configuration", err)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse Azure service URL", err)
	}

	return &AzureObjectStore{
		containerURL:  azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		accountName:   config.AccountName,
		containerName: config.ContainerName,
	}, nil
}

// Put streams the object into a block blob
func (a *AzureObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	blobURL := a.containerURL.NewBlockBlobURL(key)

	_, err := azblob.UploadStreamToBlockBlob(ctx, r, blobURL, azblob.UploadStreamToBlockBlobOptions{
		BufferSize: azureUploadBufferSize,
		MaxBuffers: 3,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: contentTypeFor(key),
		},
	})
	if err != nil {
		return a.wrapError("failed to upload blob to Azure", key, err)
	}
	return nil
}

// Get downloads the blob with the SDK retry reader
func (a *AzureObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	blobURL := a.containerURL.NewBlobURL(key)

	response, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, a.wrapError("failed to download blob from Azure", key, err)
	}
	return response.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20}), nil
}

// Delete removes the blob together with its snapshots
func (a *AzureObjectStore) Delete(ctx context.Context, key string) error {
	blobURL := a.containerURL.NewBlobURL(key)

	_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil && !isAzureNotFound(err) {
		return a.wrapError("failed to delete blob from Azure", key, err)
	}
	return nil
}

// List walks every segment of blobs under prefix
func (a *AzureObjectStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResponse, err := a.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: prefix,
		})
		if err != nil {
			return nil, a.wrapError("failed to list blobs in Azure", prefix, err)
		}

		for _, blob := range listResponse.Segment.BlobItems {
			info := ObjectInfo{
				Key:          blob.Name,
				LastModified: blob.Properties.LastModified,
			}
			if blob.Properties.ContentLength != nil {
				info.Size = *blob.Properties.ContentLength
			}
			objects = append(objects, info)
		}

		marker = listResponse.NextMarker
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// URL returns the blob URL
func (a *AzureObjectStore) URL(key string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", a.accountName, a.containerName, key)
}

// HealthCheck verifies that the container is accessible
func (a *AzureObjectStore) HealthCheck(ctx context.Context) error {
	if _, err := a.containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{}); err != nil {
		return NewStorageError("Azure health check failed: container not accessible", err).
			WithContext("container", a.containerName)
	}
	return nil
}

func (a *AzureObjectStore) wrapError(message, key string, err error) *BackupError {
	if isAzureNotFound(err) {
		return NewNotFoundError(fmt.Sprintf("blob %s not found", key), err)
	}
	var serr azblob.StorageError
	if errors.As(err, &serr) && serr.ServiceCode() == azblob.ServiceCodeAuthenticationFailed {
		return NewPermissionError(message, err).WithContext("key", key)
	}
	return NewStorageError(message, err).WithContext("key", key)
}

func isAzureNotFound(err error) bool {
	var serr azblob.StorageError
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.ServiceCode() {
	case azblob.ServiceCodeBlobNotFound, azblob.ServiceCodeContainerNotFound:
		return true
	default:
		return false
	}
}
