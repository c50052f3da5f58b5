package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityValidate(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		wantErr  bool
	}{
		{"complete", Identity{UserID: "u1", StoreID: "s1", UserMobile: "9000000000"}, false},
		{"missing user", Identity{StoreID: "s1", UserMobile: "9000000000"}, true},
		{"missing store", Identity{UserID: "u1", UserMobile: "9000000000"}, true},
		{"blank mobile", Identity{UserID: "u1", StoreID: "s1", UserMobile: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.identity.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileProviderIdentity(t *testing.T) {
	p, err := NewFileProvider(Identity{UserID: "u1", StoreID: "s1", UserMobile: "9000000000", DeviceName: "counter-1"}, "")
	require.NoError(t, err)

	assert.Equal(t, "u1", p.CurrentUserID())
	assert.Equal(t, "s1", p.CurrentStoreID())
	assert.Equal(t, "9000000000", p.CurrentUserMobile())
	assert.Equal(t, "counter-1", p.DeviceName())

	_, err = uuid.Parse(p.DeviceID())
	assert.NoError(t, err)
}

func TestFileProviderDefaultsDeviceName(t *testing.T) {
	p, err := NewFileProvider(Identity{UserID: "u1"}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, p.DeviceName())
}

func TestFileProviderPersistsLastSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "storesync-state.yaml")
	identity := Identity{UserID: "u1", StoreID: "s1", UserMobile: "9000000000", DeviceName: "counter-1"}

	p, err := NewFileProvider(identity, path)
	require.NoError(t, err)
	_, ok := p.LastSync()
	assert.False(t, ok)

	when := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, p.RecordLastSync(LastSync{Time: when, Operation: "RemoteBackup", URL: "s3://bucket/key"}))

	reloaded, err := NewFileProvider(identity, path)
	require.NoError(t, err)
	assert.Equal(t, p.DeviceID(), reloaded.DeviceID(), "device id is stable across runs")

	last, ok := reloaded.LastSync()
	require.True(t, ok)
	assert.True(t, when.Equal(last.Time))
	assert.Equal(t, "RemoteBackup", last.Operation)
	assert.Equal(t, "counter-1", last.Device)
	assert.Equal(t, p.DeviceID(), last.DeviceID)
	assert.Equal(t, "s3://bucket/key", last.URL)
}

func TestFileProviderRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_id: [unclosed"), 0600))

	_, err := NewFileProvider(Identity{}, path)
	assert.Error(t, err)
}
