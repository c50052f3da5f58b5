package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
)

func TestParseRestoreMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RestoreMode
		wantErr bool
	}{
		{"merge", ModeMerge, false},
		{" REPLACE ", ModeReplace, false},
		{"Merge", ModeMerge, false},
		{"overwrite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRestoreMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestResolveMerge(t *testing.T) {
	r := NewResolver()
	incoming := entity.Record{"catId": "c9", "catName": "Rings", "userId": "other-user", "storeId": "other-store"}

	d := r.Resolve(ModeMerge, entity.Category, nil, incoming, "u1", "s1")
	assert.Equal(t, ActionInsert, d.Action)
	assert.Equal(t, "u1", d.Record["userId"], "scope rewritten to operating identity")
	assert.Equal(t, "s1", d.Record["storeId"])
	assert.Equal(t, "other-user", incoming["userId"], "incoming record is not mutated")

	d = r.Resolve(ModeMerge, entity.Category, entity.Record{"catId": "c1"}, incoming, "u1", "s1")
	assert.Equal(t, ActionSkip, d.Action)
	assert.Nil(t, d.Record)
}

func TestResolveReplace(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name     string
		def      *entity.Definition
		incoming entity.Record
		existing entity.Record
		want     Action
	}{
		{
			name:     "current user row is protected",
			def:      entity.Users,
			incoming: entity.Record{"userId": "u1", "userName": "someone else"},
			want:     ActionSkip,
		},
		{
			name:     "other user row is written",
			def:      entity.Users,
			incoming: entity.Record{"userId": "u2"},
			want:     ActionInsert,
		},
		{
			name:     "current user additional info is protected",
			def:      entity.UserAdditionalInfo,
			incoming: entity.Record{"userId": "u1"},
			want:     ActionSkip,
		},
		{
			name:     "current store row is protected",
			def:      entity.Store,
			incoming: entity.Record{"storeId": "s1", "userId": "u1"},
			want:     ActionSkip,
		},
		{
			name:     "other store is written",
			def:      entity.Store,
			incoming: entity.Record{"storeId": "s2", "userId": "u7"},
			want:     ActionInsert,
		},
		{
			name:     "existing records are overwritten",
			def:      entity.Customer,
			incoming: entity.Record{"mobileNo": "9000000000"},
			existing: entity.Record{"mobileNo": "9000000000"},
			want:     ActionInsert,
		},
		{
			name:     "child tables have no protection",
			def:      entity.OrderItem,
			incoming: entity.Record{"orderItemId": "s1"},
			want:     ActionInsert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Resolve(ModeReplace, tt.def, tt.existing, tt.incoming, "u1", "s1")
			assert.Equal(t, tt.want, d.Action)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestResolveReplaceRewritesStoreOwner(t *testing.T) {
	d := NewResolver().Resolve(ModeReplace, entity.Store, nil, entity.Record{"storeId": "s2", "userId": "u7"}, "u1", "s1")
	require.Equal(t, ActionInsert, d.Action)
	assert.Equal(t, "u1", d.Record["userId"])
	assert.Equal(t, "s2", d.Record["storeId"])
}
