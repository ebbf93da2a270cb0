// Package storage abstracts the object store holding gallery images.
// Two backends are provided: Supabase Storage (hosted) and any
// S3-compatible server via MinIO (local development).
package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object, enough for the reconciler to
// diff the bucket against the metadata table.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

type Storage interface {
	// Upload writes data under key with the given content type, publicly readable.
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes the object at key. A missing object is not an error.
	Delete(ctx context.Context, key string) error
	// List returns every object in the bucket.
	List(ctx context.Context) ([]ObjectInfo, error)
	// PublicURL builds the browser-facing URL for key. It uses the site's
	// configured public base, not the provider's native object URL.
	PublicURL(key string) string
}
