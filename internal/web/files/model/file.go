// Package model contains the records persisted by the files service.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FilesCollection is the collection holding file records.
const FilesCollection = "files"

// Kind is the type of a file record, fixed at creation.
type Kind string

const (
	// KindFolder can hold children and never has content.
	KindFolder Kind = "folder"
	// KindFile is a generic file with stored content.
	KindFile Kind = "file"
	// KindImage is an image with stored content.
	KindImage Kind = "image"
)

// ParseKind validates a raw kind string.
func ParseKind(raw string) (Kind, bool) {
	switch k := Kind(raw); k {
	case KindFolder, KindFile, KindImage:
		return k, true
	default:
		return "", false
	}
}

// HasContent reports whether records of this kind carry stored bytes.
func (k Kind) HasContent() bool {
	return k == KindFile || k == KindImage
}

// FileRecord is the metadata of a folder, file or image.
type FileRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty"`
	// OwnerID the user who created the record, never changes
	OwnerID primitive.ObjectID `bson:"owner_id"`
	Name    string             `bson:"name"`
	Kind    Kind               `bson:"type"`
	// ParentID is RootID for top level records
	ParentID primitive.ObjectID `bson:"parent_id"`
	IsPublic bool               `bson:"is_public"`
	// StoragePath location returned by the byte storage, empty for folders
	StoragePath string    `bson:"local_path,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

// IsRoot reports whether the record lives at the top level.
func (f *FileRecord) IsRoot() bool {
	return f.ParentID.IsZero()
}

// Stats counts the documents of each collection.
type Stats struct {
	Users int64
	Files int64
}
