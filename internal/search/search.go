// Package search implements the bounded-scan search over the virtual
// filesystem.
//
// The backing store has no index, so search is a capped page-by-page scan
// of the flat key space with in-process filtering: name substring, item
// kind, file-type category, and modification-date range. Scans are
// expensive, so the filtered match set (before the caller's limit) is
// cached for a short TTL keyed by the full filter combination — repeated
// similar queries at different limits reuse one scan.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/vdrive/internal/cache"
	"github.com/koustreak/vdrive/internal/objstore"
	"github.com/koustreak/vdrive/internal/pathkey"
)

// Kind filters matches by item kind.
type Kind string

const (
	KindAny     Kind = ""
	KindFolders Kind = "folders"
	KindFiles   Kind = "files"
)

// Category is the coarse file-type bucket derived from the extension.
type Category string

const (
	CategoryDocument     Category = "document"
	CategoryImage        Category = "image"
	CategoryVideo        Category = "video"
	CategoryAudio        Category = "audio"
	CategorySpreadsheet  Category = "spreadsheet"
	CategoryPresentation Category = "presentation"
	CategoryOther        Category = "other"
)

var extCategories = map[string]Category{
	".pdf": CategoryDocument, ".doc": CategoryDocument, ".docx": CategoryDocument,
	".txt": CategoryDocument, ".md": CategoryDocument, ".rtf": CategoryDocument,
	".odt": CategoryDocument,

	".png": CategoryImage, ".jpg": CategoryImage, ".jpeg": CategoryImage,
	".gif": CategoryImage, ".webp": CategoryImage, ".svg": CategoryImage,
	".bmp": CategoryImage, ".tiff": CategoryImage,

	".mp4": CategoryVideo, ".mov": CategoryVideo, ".avi": CategoryVideo,
	".mkv": CategoryVideo, ".webm": CategoryVideo,

	".mp3": CategoryAudio, ".wav": CategoryAudio, ".flac": CategoryAudio,
	".ogg": CategoryAudio, ".m4a": CategoryAudio,

	".xls": CategorySpreadsheet, ".xlsx": CategorySpreadsheet, ".csv": CategorySpreadsheet,
	".ods": CategorySpreadsheet,

	".ppt": CategoryPresentation, ".pptx": CategoryPresentation, ".odp": CategoryPresentation,
}

// CategoryOf maps a key's extension to its Category.
func CategoryOf(key string) Category {
	if c, ok := extCategories[pathkey.Ext(key)]; ok {
		return c
	}
	return CategoryOther
}

// DateRange bounds matches by last-modified time. Zero endpoints are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Query is one search request.
type Query struct {
	// Text matches case-insensitively against the final path segment.
	Text string

	// Kind restricts matches to folders or files. Empty matches both.
	Kind Kind

	// Types restricts file matches by type. Each term is either a
	// Category name ("document", "image", …) or a bare extension
	// ("pdf", "mp4"). A non-empty filter implies files only: folders
	// have no type.
	Types []string

	// Modified restricts file matches by last-modified time.
	Modified DateRange

	// Limit caps the returned matches. 0 means no cap beyond the scan
	// bound itself.
	Limit int
}

// Item is one search match.
type Item struct {
	Key        string   `json:"key"`
	IsFolder   bool     `json:"isFolder"`
	Size       int64    `json:"size,omitempty"`
	ModifiedAt int64    `json:"modifiedAt,omitempty"`
	Category   Category `json:"category,omitempty"`
}

// Config tunes the searcher. Zero fields fall back to DefaultConfig values.
type Config struct {
	// ScanLimit caps the total objects examined per scan, bounding cost
	// and latency on large trees.
	ScanLimit int

	// PageSize is the per-page enumeration size.
	PageSize int

	// CacheTTL is how long a scan's match set stays reusable.
	CacheTTL time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() *Config {
	return &Config{
		ScanLimit: 5000,
		PageSize:  1000,
		CacheTTL:  30 * time.Second,
	}
}

// Searcher runs bounded scans against the store. Safe for concurrent use.
type Searcher struct {
	store objstore.Store
	cfg   *Config
	cache *cache.Cache[[]Item]
}

// New creates a Searcher and starts its cache sweeper.
// Call Shutdown when done.
func New(store objstore.Store, cfg *Config) *Searcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = DefaultConfig().ScanLimit
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	c := cache.New[[]Item](cfg.CacheTTL, 0)
	c.StartSweeper(time.Minute)
	return &Searcher{store: store, cfg: cfg, cache: c}
}

// Shutdown stops the cache sweeper.
func (s *Searcher) Shutdown() {
	s.cache.Shutdown()
}

// Search scans the store and returns matches for q, up to q.Limit.
// Fail-closed: a store error aborts the search and no partial matches are
// returned. Complete scans are cached (pre-limit) under the filter
// combination; a scan cut short by the limit is not, since its match set
// is not reusable at a higher limit.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Item, error) {
	key := s.cacheKey(q)
	if items, ok := s.cache.Get(key); ok {
		return capItems(items, q.Limit), nil
	}

	items, complete, err := s.scan(ctx, q)
	if err != nil {
		return nil, err
	}
	if complete {
		s.cache.Set(key, items)
	}
	return capItems(items, q.Limit), nil
}

// scan walks the flat key space from the root, skipping the icon subtree
// and deduplicating legacy/canonical twins, until the scan bound, the
// match limit, or the end of the store. complete reports whether the scan
// was not cut short by the match limit.
func (s *Searcher) scan(ctx context.Context, q Query) ([]Item, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	var items []Item
	seen := make(map[string]bool)
	scanned := 0
	token := ""

	for scanned < s.cfg.ScanLimit {
		pageSize := min(s.cfg.PageSize, s.cfg.ScanLimit-scanned)
		page, err := s.store.ListPage(ctx, objstore.ListOptions{
			Prefix:    "",
			Recursive: true,
			MaxKeys:   pageSize,
			Token:     token,
		})
		if err != nil {
			return nil, false, err
		}

		for _, o := range page.Objects {
			scanned++
			if pathkey.IsIconKey(o.Key) {
				continue
			}

			display := pathkey.ToDisplayPath(o.Key)
			if display == pathkey.RootMarker || seen[display] {
				continue
			}
			seen[display] = true

			if item, ok := s.match(display, o, needle, q); ok {
				items = append(items, item)
				if q.Limit > 0 && len(items) >= q.Limit {
					return items, false, nil
				}
			}
		}

		if !page.Truncated {
			break
		}
		token = page.NextToken
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, true, nil
}

// match applies every filter to one scanned object.
func (s *Searcher) match(display string, o objstore.ObjectInfo, needle string, q Query) (Item, bool) {
	isFolder := pathkey.IsFolder(display)

	switch q.Kind {
	case KindFolders:
		if !isFolder {
			return Item{}, false
		}
	case KindFiles:
		if isFolder {
			return Item{}, false
		}
	}

	if needle != "" && !strings.Contains(strings.ToLower(pathkey.BaseName(display)), needle) {
		return Item{}, false
	}

	if isFolder {
		// Type and date filters are file concepts.
		if len(q.Types) > 0 {
			return Item{}, false
		}
		return Item{Key: display, IsFolder: true}, true
	}

	category := CategoryOf(display)
	if len(q.Types) > 0 && !matchesType(q.Types, category, pathkey.Ext(display)) {
		return Item{}, false
	}
	if !q.Modified.contains(o.LastModified) {
		return Item{}, false
	}

	return Item{
		Key:        display,
		Size:       o.Size,
		ModifiedAt: o.LastModified.Unix(),
		Category:   category,
	}, true
}

// cacheKey builds the deterministic filter-combination key. The limit is
// deliberately excluded.
func (s *Searcher) cacheKey(q Query) string {
	types := make([]string, len(q.Types))
	for i, tp := range q.Types {
		types[i] = strings.ToLower(strings.TrimSpace(tp))
	}
	sort.Strings(types)

	return fmt.Sprintf("%s|%s|%s|%d|%d",
		strings.ToLower(strings.TrimSpace(q.Text)),
		q.Kind,
		strings.Join(types, ","),
		q.Modified.From.Unix(),
		q.Modified.To.Unix(),
	)
}

// matchesType reports whether any filter term names the file's category
// or its bare extension.
func matchesType(types []string, category Category, ext string) bool {
	bare := strings.TrimPrefix(ext, ".")
	for _, tp := range types {
		term := strings.ToLower(strings.TrimSpace(tp))
		if term == string(category) || strings.TrimPrefix(term, ".") == bare {
			return true
		}
	}
	return false
}

func capItems(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
