// Package storage writes file contents and returns where they were put.
package storage

import (
	"context"
)

// DefaultFolderPath is where the local backend writes when nothing is configured.
const DefaultFolderPath = "/tmp/files_manager"

// Storage persists raw bytes. Write returns only after the bytes are durable,
// the returned location is later handed back to Remove.
type Storage interface {
	Write(ctx context.Context, data []byte) (location string, err error)
	Remove(ctx context.Context, location string) error
}

var (
	_ Storage = (*Local)(nil)
	_ Storage = (*Minio)(nil)
)
