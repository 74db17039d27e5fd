// Package archival stores original uploads and notifies an operator about
// them, off the request path.
package archival

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"deckstamp/internal/storage"
)

const (
	keyPrefix   = "originals"
	contentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	// LinkTTL is how long a notification download link stays valid.
	LinkTTL = 7 * 24 * time.Hour
)

// Archive persists an original upload and returns its object id.
type Archive interface {
	Store(ctx context.Context, original []byte, name string) (string, error)
}

// Linker is implemented by archives that can hand out temporary download URLs.
type Linker interface {
	Link(ctx context.Context, objectID string) (string, error)
}

// ObjectArchive keeps originals in object storage under originals/<uuid>_<name>.
type ObjectArchive struct {
	store storage.Storage
}

func NewObjectArchive(store storage.Storage) *ObjectArchive {
	return &ObjectArchive{store: store}
}

func (a *ObjectArchive) Store(ctx context.Context, original []byte, name string) (string, error) {
	key := path.Join(keyPrefix, uuid.NewString()+"_"+name)
	info, err := a.store.Put(ctx, key, bytes.NewReader(original), storage.PutObjectOptions{
		Size:        int64(len(original)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload to storage: %w", err)
	}
	return info.Key, nil
}

func (a *ObjectArchive) Link(ctx context.Context, objectID string) (string, error) {
	return a.store.PresignGet(ctx, objectID, LinkTTL)
}
