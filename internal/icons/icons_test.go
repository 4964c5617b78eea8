package icons

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/vdrive/internal/errs"
	"github.com/koustreak/vdrive/internal/objstore/memory"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.RefreshDelay = time.Millisecond
	return cfg
}

func newResolver(t *testing.T) (*Resolver, *memory.Store) {
	t.Helper()
	store := memory.New()
	r := NewResolver(store, testConfig())
	t.Cleanup(r.Shutdown)
	return r, store
}

func TestSidecarKey(t *testing.T) {
	assert.Equal(t, "icons/docs/reports.icon.png", SidecarKey("/docs/reports/", ".png"))
	assert.Equal(t, "icons/docs/a.txt.icon.jpg", SidecarKey("/docs/a.txt", "jpg"))
	// Canonicalization first: both spellings derive the same key.
	assert.Equal(t, SidecarKey("docs//reports", ".png"), SidecarKey("/docs/reports/", ".png"))
}

func TestResolveURL_Found(t *testing.T) {
	r, store := newResolver(t)
	store.Seed("icons/docs/reports.icon.png", []byte("img"), time.Now())

	url, found, err := r.ResolveURL(context.Background(), "/docs/reports/")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, url)
}

func TestResolveURL_ExtensionPriority(t *testing.T) {
	r, store := newResolver(t)
	// Both present: .png wins by fixed priority, not probe order.
	store.Seed("icons/docs/reports.icon.gif", []byte("gif"), time.Now())
	store.Seed("icons/docs/reports.icon.png", []byte("png"), time.Now())

	url, found, err := r.ResolveURL(context.Background(), "/docs/reports/")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, url, "reports.icon.png")
}

func TestResolveURL_CacheHit(t *testing.T) {
	r, store := newResolver(t)
	store.Seed("icons/docs/reports.icon.png", []byte("img"), time.Now())

	_, _, err := r.ResolveURL(context.Background(), "/docs/reports/")
	require.NoError(t, err)

	store.ResetCounts()
	_, found, err := r.ResolveURL(context.Background(), "/docs/reports/")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, store.Counts().Stat, "second call within TTL must not probe")
}

func TestResolveURL_NegativeCaching(t *testing.T) {
	r, store := newResolver(t)

	_, found, err := r.ResolveURL(context.Background(), "/docs/bare/")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, len(Extensions), store.Counts().Stat)

	store.ResetCounts()
	_, found, err = r.ResolveURL(context.Background(), "/docs/bare/")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Counts().Stat, "cached absent must short-circuit")
}

func TestInvalidate_ForcesReprobe(t *testing.T) {
	r, store := newResolver(t)

	_, found, err := r.ResolveURL(context.Background(), "/docs/late/")
	require.NoError(t, err)
	assert.False(t, found)

	// Icon uploaded after the absent result was cached.
	store.Seed("icons/docs/late.icon.png", []byte("img"), time.Now())

	r.Invalidate("/docs/late/")

	_, found, err = r.ResolveURL(context.Background(), "/docs/late/")
	require.NoError(t, err)
	assert.True(t, found, "invalidation must force a re-probe")
}

func TestResolveURL_ProbeErrorPropagates(t *testing.T) {
	r, store := newResolver(t)
	boom := errs.New(errs.ErrKindConnectionFailed, "store down")
	store.OnStat = func(key string) error { return boom }

	_, _, err := r.ResolveURL(context.Background(), "/docs/x/")
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestRefresh_RidesOutPropagationDelay(t *testing.T) {
	r, store := newResolver(t)

	var mu sync.Mutex
	misses := 0
	store.OnStat = func(key string) error {
		mu.Lock()
		defer mu.Unlock()
		// First two rounds of probes miss, then the object appears.
		if misses < 2*len(Extensions) {
			misses++
			return errs.New(errs.ErrKindNotFound, "not yet visible")
		}
		return nil
	}
	store.Seed("icons/docs/new.icon.png", []byte("img"), time.Now())

	url, found, err := r.Refresh(context.Background(), "/docs/new/")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, url)
}

func TestRefresh_GivesUpAfterBoundedAttempts(t *testing.T) {
	r, store := newResolver(t)

	_, found, err := r.Refresh(context.Background(), "/docs/never/")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, testConfig().RefreshAttempts*len(Extensions), store.Counts().Stat)
}

func TestUploadURL(t *testing.T) {
	r, _ := newResolver(t)

	url, err := r.UploadURL(context.Background(), "/docs/reports/", "png")
	require.NoError(t, err)
	assert.Contains(t, url, "reports.icon.png")

	_, err = r.UploadURL(context.Background(), "/docs/reports/", "exe")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestRenameForItem(t *testing.T) {
	r, store := newResolver(t)
	store.Seed("icons/docs/old.icon.png", []byte("p"), time.Now())
	store.Seed("icons/docs/old.icon.gif", []byte("g"), time.Now())

	result := r.RenameForItem(context.Background(), "/docs/old/", "/docs/new/")
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Failures)

	keys := store.Keys()
	assert.Contains(t, keys, "icons/docs/new.icon.png")
	assert.Contains(t, keys, "icons/docs/new.icon.gif")
	assert.NotContains(t, keys, "icons/docs/old.icon.png")
}

func TestRemoveForItem(t *testing.T) {
	r, store := newResolver(t)
	store.Seed("icons/docs/a.txt.icon.png", []byte("p"), time.Now())
	store.Seed("icons/docs/a.txt.icon.gif", []byte("g"), time.Now())
	store.Seed("icons/docs/b.txt.icon.png", []byte("other"), time.Now())

	result := r.RemoveForItem(context.Background(), "/docs/a.txt")
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Succeeded)
	assert.Empty(t, result.Failures)

	assert.ElementsMatch(t, []string{"icons/docs/b.txt.icon.png"}, store.Keys())
}

func TestRemoveForFolder(t *testing.T) {
	r, store := newResolver(t)
	now := time.Now()
	store.Seed("icons/docs/sub.icon.png", []byte("own"), now)
	store.Seed("icons/docs/sub/pic.jpg.icon.png", []byte("member"), now)
	store.Seed("icons/docs/sub/deep/x.png.icon.webp", []byte("nested"), now)
	store.Seed("icons/docs/other.icon.png", []byte("sibling"), now)

	result := r.RemoveForFolder(context.Background(), "/docs/sub/")
	assert.Equal(t, 3, result.Succeeded)
	assert.Empty(t, result.Failures)

	// The folder's own sidecar and the whole member subtree are gone;
	// siblings are untouched.
	assert.ElementsMatch(t, []string{"icons/docs/other.icon.png"}, store.Keys())
}

func TestRenameForItem_PartialFailure(t *testing.T) {
	r, store := newResolver(t)
	store.Seed("icons/docs/old.icon.png", []byte("p"), time.Now())
	store.Seed("icons/docs/old.icon.gif", []byte("g"), time.Now())

	injected := errors.New("copy refused")
	store.OnCopy = func(src, dst string) error {
		if src == "icons/docs/old.icon.gif" {
			return injected
		}
		return nil
	}

	result := r.RenameForItem(context.Background(), "/docs/old/", "/docs/new/")
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "icons/docs/old.icon.gif", result.Failures[0].Key)

	// The failed sidecar stays at its old key.
	assert.Contains(t, store.Keys(), "icons/docs/old.icon.gif")
}
