package storage

import (
	"context"
	"io"
)

// BlobStore hosts question images. Put returns the opaque reference stored
// on the question (a tg://file/ ref for the Telegram backend, a plain key
// for the filesystem one).
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}
