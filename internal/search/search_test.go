package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/vdrive/internal/objstore/memory"
)

func newSearcher(t *testing.T, cfg *Config) (*Searcher, *memory.Store) {
	t.Helper()
	store := memory.New()
	s := New(store, cfg)
	t.Cleanup(s.Shutdown)
	return s, store
}

func itemKeys(items []Item) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

func TestSearch_NameSubstring(t *testing.T) {
	s, store := newSearcher(t, nil)
	now := time.Now()
	store.Seed("/docs/Quarterly-Report.pdf", []byte("q"), now)
	store.Seed("/docs/notes.txt", []byte("n"), now)
	store.Seed("/archive/report-2024.txt", []byte("r"), now)

	items, err := s.Search(context.Background(), Query{Text: "report"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/archive/report-2024.txt", "/docs/Quarterly-Report.pdf"}, itemKeys(items),
		"match is case-insensitive on the final segment")
}

func TestSearch_KindAndTypeFilters(t *testing.T) {
	s, store := newSearcher(t, nil)
	now := time.Now()
	store.Seed("/docs/report.pdf", []byte("p"), now)
	store.Seed("/docs/report.txt", []byte("t"), now)
	store.Seed("/docs/reports/", nil, now)

	items, err := s.Search(context.Background(), Query{
		Text:  "report",
		Kind:  KindFiles,
		Types: []string{"pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/report.pdf"}, itemKeys(items))

	items, err = s.Search(context.Background(), Query{Text: "report", Kind: KindFolders})
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/reports/"}, itemKeys(items))
}

func TestSearch_CategoryTerm(t *testing.T) {
	s, store := newSearcher(t, nil)
	now := time.Now()
	store.Seed("/m/clip.mp4", []byte("v"), now)
	store.Seed("/m/song.mp3", []byte("a"), now)
	store.Seed("/m/cover.png", []byte("i"), now)

	items, err := s.Search(context.Background(), Query{Types: []string{"image", "audio"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/m/cover.png", "/m/song.mp3"}, itemKeys(items))
}

func TestSearch_DateRange(t *testing.T) {
	s, store := newSearcher(t, nil)
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	store.Seed("/docs/old.txt", []byte("o"), old)
	store.Seed("/docs/new.txt", []byte("n"), recent)

	items, err := s.Search(context.Background(), Query{
		Kind:     KindFiles,
		Modified: DateRange{From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/new.txt"}, itemKeys(items))
}

func TestSearch_SkipsIconSubtreeAndRootMarker(t *testing.T) {
	s, store := newSearcher(t, nil)
	now := time.Now()
	store.Seed("/", nil, now)
	store.Seed("/docs/pic.png", []byte("p"), now)
	store.Seed("icons/docs/pic.png.icon.png", []byte("i"), now)

	items, err := s.Search(context.Background(), Query{Text: "pic"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/docs/pic.png"}, itemKeys(items))
}

func TestSearch_LimitShortCircuits(t *testing.T) {
	s, store := newSearcher(t, nil)
	now := time.Now()
	for i := 0; i < 10; i++ {
		store.Seed(fmt.Sprintf("/docs/match-%02d.txt", i), []byte("x"), now)
	}

	items, err := s.Search(context.Background(), Query{Text: "match", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSearch_ScanBound(t *testing.T) {
	s, store := newSearcher(t, &Config{ScanLimit: 5, PageSize: 2})
	now := time.Now()
	for i := 0; i < 20; i++ {
		store.Seed(fmt.Sprintf("/docs/f-%02d.txt", i), []byte("x"), now)
	}

	items, err := s.Search(context.Background(), Query{Text: "f-"})
	require.NoError(t, err)
	assert.Len(t, items, 5, "scan stops at the object bound")
}

func TestSearch_CachedScanReused(t *testing.T) {
	s, store := newSearcher(t, nil)
	now := time.Now()
	store.Seed("/docs/report.pdf", []byte("p"), now)
	store.Seed("/docs/report.txt", []byte("t"), now)

	_, err := s.Search(context.Background(), Query{Text: "report"})
	require.NoError(t, err)

	store.ResetCounts()
	items, err := s.Search(context.Background(), Query{Text: "report", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 0, store.Counts().List, "same filter at a lower limit reuses the cached scan")
}

func TestSearch_FailClosed(t *testing.T) {
	s, store := newSearcher(t, nil)
	store.Seed("/docs/report.pdf", []byte("p"), time.Now())
	store.OnList = func(prefix string) error { return errors.New("store down") }

	items, err := s.Search(context.Background(), Query{Text: "report"})
	assert.Error(t, err)
	assert.Nil(t, items, "no partial matches on failure")
}
