package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrInvalidFileRef is returned by ObjectStore.Delete when asked to delete a
// URL that was not produced by the expected storage location.
var ErrInvalidFileRef = errors.New("file reference does not belong to this storage")

// MaxUploadSize caps files accepted for storage (bytes).
const MaxUploadSize = 10 << 20

// ObjectStore is any service holding file bytes externally; entities only
// keep the returned URL. Put and Delete fail independently of any database
// write referencing the URL.
type ObjectStore interface {
	// Put stores the file and returns its public URL.
	Put(ctx context.Context, data []byte, filename, contentType string) (string, error)
	// Delete removes the file behind a URL previously returned by Put.
	Delete(ctx context.Context, url string) error
	// Owns reports whether a URL points into this storage location, ie.
	// could have been returned by Put.
	Owns(url string) bool
}
