// Package vfs implements the hierarchical-filesystem abstraction over the
// flat backing object store: listing, folder emulation, rename emulation,
// and presigned transfer URLs.
//
// The store has no native rename or move, so every mutation here is
// emulated from copy/put/delete primitives. Folder renames and recursive
// deletes are best-effort batch operations, not transactions: they report
// attempted/succeeded counts and per-key failures, and callers must treat
// those counts as authoritative.
package vfs

import (
	"strings"
	"time"

	"github.com/koustreak/vdrive/internal/icons"
	"github.com/koustreak/vdrive/internal/objstore"
)

// Config tunes the service. Zero fields fall back to DefaultConfig values.
type Config struct {
	// MaxItems is the default listing page size when the caller passes 0.
	MaxItems int

	// IconConcurrency caps in-flight icon resolutions during a listing.
	IconConcurrency int

	// RenameConcurrency caps in-flight copy/delete pairs during a folder
	// rename.
	RenameConcurrency int

	// DeleteBatchSize is how many keys are enumerated and deleted per
	// round of a recursive folder delete.
	DeleteBatchSize int

	// DownloadURLTTL and UploadURLTTL bound minted transfer URLs.
	DownloadURLTTL time.Duration
	UploadURLTTL   time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() *Config {
	return &Config{
		MaxItems:          1000,
		IconConcurrency:   5,
		RenameConcurrency: 5,
		DeleteBatchSize:   1000,
		DownloadURLTTL:    15 * time.Minute,
		UploadURLTTL:      15 * time.Minute,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.MaxItems <= 0 {
		out.MaxItems = d.MaxItems
	}
	if out.IconConcurrency <= 0 {
		out.IconConcurrency = d.IconConcurrency
	}
	if out.RenameConcurrency <= 0 {
		out.RenameConcurrency = d.RenameConcurrency
	}
	if out.DeleteBatchSize <= 0 {
		out.DeleteBatchSize = d.DeleteBatchSize
	}
	if out.DownloadURLTTL <= 0 {
		out.DownloadURLTTL = d.DownloadURLTTL
	}
	if out.UploadURLTTL <= 0 {
		out.UploadURLTTL = d.UploadURLTTL
	}
	return &out
}

// Service is the virtual-filesystem layer callers talk to. All operations
// are safe for concurrent use.
type Service struct {
	store    objstore.Store
	icons    *icons.Resolver
	decorate Decorator
	cfg      *Config
}

// New creates a Service on top of store. The icon resolver may be nil,
// in which case listings never carry icons and renames skip sidecars.
func New(store objstore.Store, iconResolver *icons.Resolver, cfg *Config) *Service {
	return &Service{
		store: store,
		icons: iconResolver,
		cfg:   cfg.withDefaults(),
	}
}

// WithDecorator installs the optional metadata enrichment callback and
// returns the service for chaining.
func (s *Service) WithDecorator(d Decorator) *Service {
	s.decorate = d
	return s
}

// isSubPrefix reports whether child lies inside (or equals) parent.
// Both must be canonical folder keys.
func isSubPrefix(parent, child string) bool {
	return strings.HasPrefix(child, parent)
}
