package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Laisky/files-manager/internal/web/files/model"
)

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page, size int
		offset     int64
		limit      int64
		ok         bool
	}{
		{name: "first page", total: 45, page: 0, size: 20, offset: 0, limit: 20, ok: true},
		{name: "middle page", total: 45, page: 1, size: 20, offset: 20, limit: 20, ok: true},
		{name: "last partial page", total: 45, page: 2, size: 20, offset: 40, limit: 5, ok: true},
		{name: "past the end", total: 45, page: 3, size: 20, ok: false},
		{name: "far past the end", total: 45, page: 99, size: 20, ok: false},
		{name: "negative page", total: 45, page: -1, size: 20, ok: false},
		{name: "empty parent", total: 0, page: 0, size: 20, ok: false},
		{name: "exact multiple", total: 40, page: 1, size: 20, offset: 20, limit: 20, ok: true},
		{name: "exact multiple overflow", total: 40, page: 2, size: 20, ok: false},
		{name: "default size", total: 21, page: 1, size: 0, offset: 20, limit: 1, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit, ok := pageWindow(tt.total, tt.page, tt.size)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.offset, offset)
				require.Equal(t, tt.limit, limit)
			}
		})
	}
}

// TestChildrenQuery verifies the owner condition is only added when requested.
func TestChildrenQuery(t *testing.T) {
	parent := model.NewID()
	require.Equal(t, bson.M{"parent_id": parent}, childrenQuery(ChildrenFilter{ParentID: parent}))

	owner := model.NewID()
	require.Equal(t, bson.M{"parent_id": parent, "owner_id": owner},
		childrenQuery(ChildrenFilter{ParentID: parent, OwnerID: owner}))
}

// TestMongoUnavailableShortCircuits verifies a store without a live connection
// answers STORE_UNAVAILABLE without touching the driver.
func TestMongoUnavailableShortCircuits(t *testing.T) {
	s := NewMongo(nil)
	ctx := context.Background()

	_, err := s.InsertUser(ctx, "a@b.c", "hash")
	require.True(t, model.IsCode(err, model.ErrCodeStoreUnavailable))
	_, err = s.FindFile(ctx, FileFilter{ID: model.NewID()})
	require.True(t, model.IsCode(err, model.ErrCodeStoreUnavailable))
	_, err = s.ListChildren(ctx, ChildrenFilter{}, 0, DefaultPageSize)
	require.True(t, model.IsCode(err, model.ErrCodeStoreUnavailable))
	require.True(t, model.IsCode(s.SetPublic(ctx, model.NewID(), true), model.ErrCodeStoreUnavailable))
	require.True(t, model.IsCode(s.EnsureIndexes(ctx), model.ErrCodeStoreUnavailable))
}
