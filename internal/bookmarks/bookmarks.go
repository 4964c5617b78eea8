// Package bookmarks persists user bookmarks on drive paths and exposes
// them as listing metadata.
//
// The drive itself is stateless over the object store; bookmarks are the
// one piece of state that lives elsewhere. Storage is pluggable: the
// postgres and mysql subpackages implement Store, and layers above this
// package talk only to the interface — they never import a driver
// directly.
//
// Usage:
//
//	store, err := postgres.New(ctx, bookmarks.DefaultConfig(dsn))
//	if err != nil { ... }
//	defer store.Close()
//
//	svc := vfs.New(objStore, icons, nil).WithDecorator(bookmarks.Decorator(store))
package bookmarks

import (
	"context"
	"time"

	"github.com/koustreak/vdrive/internal/vfs"
)

// Record is one stored bookmark.
type Record struct {
	// Path is the display path the bookmark points at. Folder paths keep
	// their trailing separator.
	Path string

	// Note is an optional free-form annotation.
	Note string

	CreatedAt time.Time
}

// Store is the persistence contract for bookmarks.
type Store interface {
	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close()

	// Add stores a bookmark for path, replacing any existing one.
	Add(ctx context.Context, path, note string) error

	// Remove deletes the bookmark for path. Removing a path that is not
	// bookmarked is not an error.
	Remove(ctx context.Context, path string) error

	// List returns all bookmarks ordered by path.
	List(ctx context.Context) ([]Record, error)

	// ForPaths returns the bookmarks among paths, keyed by path. Paths
	// without a bookmark are absent from the result.
	ForPaths(ctx context.Context, paths []string) (map[string]Record, error)
}

// Decorator adapts a Store into listing metadata: every bookmarked entry
// gains a "bookmarked" flag and, when present, its note.
func Decorator(s Store) vfs.Decorator {
	return func(ctx context.Context, paths []string) (map[string]vfs.Metadata, error) {
		records, err := s.ForPaths(ctx, paths)
		if err != nil {
			return nil, err
		}

		meta := make(map[string]vfs.Metadata, len(records))
		for path, rec := range records {
			m := vfs.Metadata{"bookmarked": true}
			if rec.Note != "" {
				m["bookmarkNote"] = rec.Note
			}
			meta[path] = m
		}
		return meta, nil
	}
}
