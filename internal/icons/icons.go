// Package icons resolves the optional decorative icon attached to a file
// or folder.
//
// Icons are sidecar objects: for an item at /docs/reports/ the candidates
// live at icons/docs/reports.icon.png, icons/docs/reports.icon.jpg, and so
// on through a fixed extension priority. The subsystem probes candidates
// concurrently, mints a short-lived download URL for the best hit, and
// caches both hits and misses — icons are rare, so the cached "absent"
// result is what makes listing decoration affordable.
package icons

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/vdrive/internal/cache"
	"github.com/koustreak/vdrive/internal/errs"
	"github.com/koustreak/vdrive/internal/objstore"
	"github.com/koustreak/vdrive/internal/pathkey"
)

// sidecarSuffix separates the item path from the icon extension inside
// the sidecar key.
const sidecarSuffix = ".icon"

// Extensions is the fixed candidate order. Ties between present sidecars
// resolve by this priority, never by probe completion order.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}

var extContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Config tunes the resolver. Zero fields fall back to DefaultConfig values.
type Config struct {
	// CacheTTL is how long a resolution (hit or miss) stays cached.
	CacheTTL time.Duration
	// CacheMaxEntries bounds the cache; oldest insertions evict first.
	CacheMaxEntries int
	// URLTTL is the lifetime of minted download URLs.
	URLTTL time.Duration
	// UploadURLTTL is the lifetime of minted upload URLs.
	UploadURLTTL time.Duration
	// ProbeConcurrency caps in-flight existence probes.
	ProbeConcurrency int
	// RefreshAttempts and RefreshDelay bound the re-probe loop that rides
	// out store propagation delay after an upload.
	RefreshAttempts int
	RefreshDelay    time.Duration
}

// DefaultConfig returns the production tuning.
func DefaultConfig() *Config {
	return &Config{
		CacheTTL:         5 * time.Minute,
		CacheMaxEntries:  1024,
		URLTTL:           15 * time.Minute,
		UploadURLTTL:     10 * time.Minute,
		ProbeConcurrency: 5,
		RefreshAttempts:  4,
		RefreshDelay:     250 * time.Millisecond,
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.CacheTTL <= 0 {
		out.CacheTTL = d.CacheTTL
	}
	if out.CacheMaxEntries <= 0 {
		out.CacheMaxEntries = d.CacheMaxEntries
	}
	if out.URLTTL <= 0 {
		out.URLTTL = d.URLTTL
	}
	if out.UploadURLTTL <= 0 {
		out.UploadURLTTL = d.UploadURLTTL
	}
	if out.ProbeConcurrency <= 0 {
		out.ProbeConcurrency = d.ProbeConcurrency
	}
	if out.RefreshAttempts <= 0 {
		out.RefreshAttempts = d.RefreshAttempts
	}
	if out.RefreshDelay <= 0 {
		out.RefreshDelay = d.RefreshDelay
	}
	return &out
}

// resolution is one cached outcome. found false is the cached-absent marker.
type resolution struct {
	url   string
	found bool
}

// Resolver probes, caches, and invalidates icon sidecars.
// Safe for concurrent use.
type Resolver struct {
	store objstore.Store
	cfg   *Config
	cache *cache.Cache[resolution]
}

// NewResolver creates a Resolver and starts its cache sweeper.
// Call Shutdown when done.
func NewResolver(store objstore.Store, cfg *Config) *Resolver {
	cfg = cfg.withDefaults()
	c := cache.New[resolution](cfg.CacheTTL, cfg.CacheMaxEntries)
	c.StartSweeper(time.Minute)
	return &Resolver{store: store, cfg: cfg, cache: c}
}

// Shutdown stops the cache sweeper.
func (r *Resolver) Shutdown() {
	r.cache.Shutdown()
}

// SidecarKey returns the deterministic sidecar key for itemPath and ext.
// Total: any path and extension produce exactly one key inside the
// reserved icon subtree.
func SidecarKey(itemPath, ext string) string {
	trimmed := strings.Trim(pathkey.ToDisplayPath(itemPath), pathkey.Separator)
	return pathkey.IconPrefix + trimmed + sidecarSuffix + normalizeExt(ext)
}

// ResolveURL returns a short-lived download URL for the item's icon, or
// found false when the item has none. Both outcomes are cached; a fresh
// cached result answers without any store call.
func (r *Resolver) ResolveURL(ctx context.Context, itemPath string) (string, bool, error) {
	key := pathkey.ToDisplayPath(itemPath)

	if res, ok := r.cache.Get(key); ok {
		return res.url, res.found, nil
	}

	ext, found, err := r.probe(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !found {
		r.cache.Set(key, resolution{})
		return "", false, nil
	}

	url, err := r.store.PresignGet(ctx, SidecarKey(key, ext), r.cfg.URLTTL)
	if err != nil {
		return "", false, err
	}
	r.cache.Set(key, resolution{url: url, found: true})
	return url, true, nil
}

// probe checks every candidate extension concurrently and returns the
// best present one. A missing sidecar is a normal negative, not an error.
func (r *Resolver) probe(ctx context.Context, canonicalPath string) (string, bool, error) {
	present := make([]bool, len(Extensions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.ProbeConcurrency)
	for i, ext := range Extensions {
		g.Go(func() error {
			_, err := r.store.Stat(gctx, SidecarKey(canonicalPath, ext))
			if err != nil {
				if errs.IsNotFound(err) {
					return nil
				}
				return err
			}
			present[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", false, err
	}

	for i, ext := range Extensions {
		if present[i] {
			return ext, true, nil
		}
	}
	return "", false, nil
}

// UploadURL mints a time-limited write URL for the item's sidecar of the
// given image type. The caller performs the upload itself and then calls
// Invalidate (or Refresh) so the new icon becomes visible.
func (r *Resolver) UploadURL(ctx context.Context, itemPath, imageType string) (string, error) {
	ext := normalizeExt(imageType)
	contentType, ok := extContentTypes[ext]
	if !ok {
		return "", errs.New(errs.ErrKindInvalidInput, "unsupported icon type: "+imageType)
	}
	return r.store.PresignPut(ctx, SidecarKey(itemPath, ext), contentType, r.cfg.UploadURLTTL)
}

// Invalidate drops cached resolutions for the given paths so the next
// lookup re-probes the store. Used after uploads and renames; without it a
// cached "absent" would shadow a freshly uploaded icon for a full TTL.
func (r *Resolver) Invalidate(paths ...string) {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = pathkey.ToDisplayPath(p)
	}
	r.cache.Delete(keys...)
}

// Refresh invalidates and re-probes, retrying a bounded number of times to
// tolerate store propagation delay right after an upload.
func (r *Resolver) Refresh(ctx context.Context, itemPath string) (string, bool, error) {
	attempts := r.cfg.RefreshAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		r.Invalidate(itemPath)

		url, found, err := r.ResolveURL(ctx, itemPath)
		if err != nil || found || attempt == attempts {
			return url, found, err
		}

		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(r.cfg.RefreshDelay):
		}
	}
}

// RenameForItem moves every present sidecar of oldPath to newPath's
// sidecar key. Best-effort per extension: one extension's failure never
// aborts the others, it is aggregated into the result. Both paths' cache
// entries are invalidated afterwards.
func (r *Resolver) RenameForItem(ctx context.Context, oldPath, newPath string) *objstore.BatchResult {
	defer r.Invalidate(oldPath, newPath)

	result := &objstore.BatchResult{}
	var mu sync.Mutex

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.ProbeConcurrency)
	for _, ext := range Extensions {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			oldKey := SidecarKey(oldPath, ext)
			newKey := SidecarKey(newPath, ext)

			if _, err := r.store.Stat(ctx, oldKey); err != nil {
				if !errs.IsNotFound(err) {
					mu.Lock()
					result.Attempted++
					result.Failures = append(result.Failures, objstore.KeyError{Key: oldKey, Err: err})
					mu.Unlock()
				}
				return
			}

			mu.Lock()
			result.Attempted++
			mu.Unlock()

			if err := r.store.Copy(ctx, oldKey, newKey); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, objstore.KeyError{Key: oldKey, Err: err})
				mu.Unlock()
				return
			}
			if err := r.store.Remove(ctx, oldKey); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, objstore.KeyError{Key: oldKey, Err: err})
				mu.Unlock()
				return
			}

			mu.Lock()
			result.Succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	return result
}

// RemoveForItem deletes every present sidecar of itemPath. Best-effort
// per extension, same discipline as RenameForItem. The path's cache
// entry is invalidated afterwards.
func (r *Resolver) RemoveForItem(ctx context.Context, itemPath string) *objstore.BatchResult {
	defer r.Invalidate(itemPath)

	result := &objstore.BatchResult{}
	var mu sync.Mutex

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.ProbeConcurrency)
	for _, ext := range Extensions {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			key := SidecarKey(itemPath, ext)

			if _, err := r.store.Stat(ctx, key); err != nil {
				if !errs.IsNotFound(err) {
					mu.Lock()
					result.Attempted++
					result.Failures = append(result.Failures, objstore.KeyError{Key: key, Err: err})
					mu.Unlock()
				}
				return
			}

			mu.Lock()
			result.Attempted++
			mu.Unlock()

			if err := r.store.Remove(ctx, key); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, objstore.KeyError{Key: key, Err: err})
				mu.Unlock()
				return
			}

			mu.Lock()
			result.Succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	return result
}

// RemoveForFolder deletes the icon subtree mirroring a folder — the
// sidecars of every member — plus the folder's own sidecars, so icons
// never outlive a recursively deleted folder. Best-effort: enumeration
// failure is recorded and the sweep stops there.
func (r *Resolver) RemoveForFolder(ctx context.Context, folderPath string) *objstore.BatchResult {
	result := r.RemoveForItem(ctx, folderPath)

	trimmed := strings.Trim(pathkey.ToDisplayPath(folderPath), pathkey.Separator)
	if trimmed == "" {
		return result
	}
	subtree := pathkey.IconPrefix + trimmed + pathkey.Separator

	token := ""
	for {
		page, err := r.store.ListPage(ctx, objstore.ListOptions{
			Prefix:    subtree,
			Recursive: true,
			MaxKeys:   1000,
			Token:     token,
		})
		if err != nil {
			result.Failures = append(result.Failures, objstore.KeyError{Key: subtree, Err: err})
			return result
		}
		if len(page.Objects) == 0 && !page.Truncated {
			return result
		}

		keys := make([]string, 0, len(page.Objects))
		for _, o := range page.Objects {
			keys = append(keys, o.Key)
		}
		result.Merge(r.store.RemoveBatch(ctx, keys))

		if !page.Truncated {
			return result
		}
		token = page.NextToken
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
