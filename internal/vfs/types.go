package vfs

import (
	"context"
	"time"

	"github.com/koustreak/vdrive/internal/objstore"
)

// Metadata is caller-owned decoration attached to a listing entry,
// merged by exact key match. The core never interprets it.
type Metadata map[string]any

// Decorator is the optional enrichment collaborator. The listing engine
// invokes it at most once per listing call with every returned key; the
// core has no dependency on where the metadata lives.
type Decorator func(ctx context.Context, keys []string) (map[string]Metadata, error)

// FolderEntry is one folder in a listing.
type FolderEntry struct {
	// Key is the canonical display path, with trailing separator.
	Key string `json:"key"`

	// IconURL is a short-lived download URL for the folder's icon,
	// empty when the folder has none or icons were not requested.
	IconURL string `json:"iconUrl,omitempty"`

	// Metadata is decoration merged from the Decorator, if any.
	Metadata Metadata `json:"metadata,omitempty"`
}

// FileEntry is one file in a listing.
type FileEntry struct {
	// Key is the canonical display path.
	Key string `json:"key"`

	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`

	// Metadata is decoration merged from the Decorator, if any.
	Metadata Metadata `json:"metadata,omitempty"`
}

// ListResult is one page of a folder listing.
type ListResult struct {
	Folders []FolderEntry `json:"folders"`
	Files   []FileEntry   `json:"files"`

	// Truncated reports that the page did not exhaust the folder.
	Truncated bool `json:"truncated"`

	// ContinuationToken resumes the listing. Opaque: it is the backing
	// store's own token, passed through untouched. It belongs to the
	// first key spelling that truncated, canonical before legacy.
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// DeleteResult reports a recursive folder delete. Best-effort: failures
// are collected, not escalated, and the counts are authoritative.
type DeleteResult struct {
	Attempted int                 `json:"attempted"`
	Removed   int                 `json:"removed"`
	Failures  []objstore.KeyError `json:"failures,omitempty"`
}

// RenameResult reports a rename. For files Moved and Deleted are at most
// one; for folders they count members. A partial folder rename (Moved
// below the member count) is reported, never hidden: the remainder is
// still listable under From.
type RenameResult struct {
	From string `json:"from"`
	To   string `json:"to"`

	Moved   int `json:"moved"`
	Deleted int `json:"deleted"`

	Failures []objstore.KeyError `json:"failures,omitempty"`
}
