package interfaces

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by DocumentStore.Get when nothing is stored under the key.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore keeps whole JSON documents under fixed keys.
// Set replaces the stored document; there are no partial updates.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
