package storage

import (
	"context"
	"io"
)

// Provider is a flat key/value blob backend.
type Provider interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, contentType string) error
	Delete(ctx context.Context, key string) error
}
