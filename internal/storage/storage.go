// Package storage contains the object storage abstraction used to archive
// original uploads in an S3-compatible bucket.
package storage

import (
	"context"
	"io"
	"time"
)

// PutObjectOptions describe an upload. Size is -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the backend reports after a Put.
type ObjectInfo struct {
	Key  string
	Size int64
	ETag string
}

// Storage is the slice of an S3-compatible bucket the archive needs.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// PresignGet returns a download URL that needs no credentials until expiry.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	// Ping reports whether the bucket is reachable.
	Ping(ctx context.Context) error
}
