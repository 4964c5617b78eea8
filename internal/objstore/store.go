// Package objstore defines the unified interface for the backing object
// store all of vdrive sits on top of.
//
// The backing store is flat and key-addressed: it supports get/put/delete,
// server-side copy, and prefix/delimiter listing — nothing else. There is no
// native rename, no native folder, and no native move. Everything above this
// package (listing, mutation, icons, search) emulates hierarchy out of those
// primitives. Providers (MinIO, in-memory, …) implement the Store interface;
// callers depend only on this package, never on a provider package.
//
// Usage:
//
//	cfg := objstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "vdrive")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	page, err := store.ListPage(ctx, objstore.ListOptions{Prefix: "/docs/"})
package objstore

import (
	"context"
	"io"
	"time"
)

// Store is the single interface all object store providers must implement.
// Implementations must be safe for concurrent use: bulk operations above
// this layer issue many calls in flight at once.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// Get opens a streaming handle to the object at key.
	// The caller MUST call Object.Close() after reading.
	Get(ctx context.Context, key string) (Object, error)

	// Put writes size bytes from r to key, overwriting any existing object.
	// A size of -1 streams until EOF. A zero-length Put creates a marker
	// object, which is how folders come into existence.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Stat returns metadata for the object at key without downloading it.
	// A missing key yields an error satisfying errs.IsNotFound.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Remove deletes the object at key. Removing an absent key is not an
	// error: delete is idempotent at this layer.
	Remove(ctx context.Context, key string) error

	// RemoveBatch deletes keys in bulk, chunked to the backend's batch
	// limit. It is best-effort: per-key failures are collected in the
	// result, never escalated to an overall error.
	RemoveBatch(ctx context.Context, keys []string) *BatchResult

	// Copy duplicates the object at src to dst server-side.
	Copy(ctx context.Context, src, dst string) error

	// ListPage returns one page of keys under opts.Prefix. With
	// opts.Recursive false, keys are grouped at the next separator into
	// Page.Prefixes (virtual folders). Page.NextToken resumes the listing.
	ListPage(ctx context.Context, opts ListOptions) (*Page, error)

	// PresignGet returns a time-limited URL that allows anyone to download
	// the object at key without credentials.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PresignPut returns a time-limited URL that allows uploading to key.
	// When contentType is non-empty the upload is pinned to that type.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
}
