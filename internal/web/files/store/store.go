// Package store persists users and file records.
package store

import (
	"context"

	"github.com/Laisky/files-manager/internal/web/files/model"
)

// DefaultPageSize is the number of children returned per page.
const DefaultPageSize = 20

// FileFilter selects one file record. A zero OwnerID matches any owner.
type FileFilter struct {
	ID      model.ID
	OwnerID model.ID
}

// ChildrenFilter selects the direct children of a parent.
// A zero OwnerID matches any owner.
type ChildrenFilter struct {
	ParentID model.ID
	OwnerID  model.ID
}

// DocumentStore is the persistent store of users and file records.
//
// Every method returns a STORE_UNAVAILABLE error before doing anything else
// when the backend is not connected. Missing records are NOT_FOUND errors,
// duplicate emails are CONFLICT errors.
type DocumentStore interface {
	IsAlive() bool

	InsertUser(ctx context.Context, email, passwordHash string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id model.ID) (*model.User, error)

	// InsertFile assigns a fresh id to rec and persists it.
	InsertFile(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)
	FindFile(ctx context.Context, filter FileFilter) (*model.FileRecord, error)
	CountChildren(ctx context.Context, filter ChildrenFilter) (int64, error)
	// ListChildren returns one page of children in creation order.
	// Out of range pages are empty, not errors.
	ListChildren(ctx context.Context, filter ChildrenFilter, pageIndex, pageSize int) ([]*model.FileRecord, error)
	SetPublic(ctx context.Context, id model.ID, value bool) error

	Stats(ctx context.Context) (model.Stats, error)
}

// pageWindow computes the slice of a children listing to return.
// ok is false when the page is out of range.
func pageWindow(total int64, pageIndex, pageSize int) (offset, limit int64, ok bool) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageIndex < 0 || total <= 0 {
		return 0, 0, false
	}

	size := int64(pageSize)
	totalPages := (total + size - 1) / size
	if int64(pageIndex) >= totalPages {
		return 0, 0, false
	}

	offset = int64(pageIndex) * size
	return offset, min(size, total-offset), true
}

var (
	_ DocumentStore = (*Mongo)(nil)
	_ DocumentStore = (*Memory)(nil)
)
