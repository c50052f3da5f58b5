package backup

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupErrorMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewNetworkError("failed to read backup object", cause).
		WithContext("key", "database_backups/9000000000/s1/backup_20240102T030405Z.xlsx")

	assert.Equal(t,
		"network: failed to read backup object key=database_backups/9000000000/s1/backup_20240102T030405Z.xlsx: connection reset",
		err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestRetryClassification(t *testing.T) {
	tests := []struct {
		err       error
		retryable bool
		permanent bool
	}{
		{NewStorageError("upload failed", nil), true, false},
		{NewNetworkError("timeout", nil), true, false},
		{NewNotFoundError("no backups", nil), false, true},
		{NewPermissionError("denied", nil), false, true},
		{NewEncryptionError("bad key", nil), false, true},
		{NewCorruptionError("truncated", nil), false, true},
		{NewCompressionError("zstd", nil), false, false},
		{errors.New("plain"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("backup: %w", tt.err)
			assert.Equal(t, tt.retryable, IsRetryable(wrapped))
			assert.Equal(t, tt.permanent, IsPermanent(wrapped))
		})
	}

	assert.True(t, IsNotFound(fmt.Errorf("restore: %w", NewNotFoundError("no backups", nil))))
	assert.False(t, IsNotFound(NewStorageError("x", nil)))
}

func TestValidationErrorsMergePrefixesFields(t *testing.T) {
	var inner ValidationErrors
	inner.Add("bucket", "S3 bucket name is required", "")

	var outer ValidationErrors
	outer.Merge("storage", inner)
	outer.Merge("timeout", errors.New("must be positive"))
	outer.Merge("ignored", nil)

	require.Len(t, outer, 2)
	assert.Equal(t, "storage.bucket", outer[0].Field)
	assert.Equal(t, "timeout", outer[1].Field)
	assert.Contains(t, outer.Error(), "2 problems")
	assert.True(t, outer.HasErrors())
	assert.False(t, ValidationErrors(nil).HasErrors())
}
