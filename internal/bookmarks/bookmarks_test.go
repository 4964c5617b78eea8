package bookmarks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	records map[string]Record
	err     error
	asked   []string
}

func (s *stubStore) Ping(ctx context.Context) error { return nil }
func (s *stubStore) Close()                         {}

func (s *stubStore) Add(ctx context.Context, path, note string) error {
	s.records[path] = Record{Path: path, Note: note, CreatedAt: time.Now()}
	return nil
}

func (s *stubStore) Remove(ctx context.Context, path string) error {
	delete(s.records, path)
	return nil
}

func (s *stubStore) List(ctx context.Context) ([]Record, error) {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *stubStore) ForPaths(ctx context.Context, paths []string) (map[string]Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.asked = paths
	out := make(map[string]Record)
	for _, p := range paths {
		if rec, ok := s.records[p]; ok {
			out[p] = rec
		}
	}
	return out, nil
}

func TestDecorator_AnnotatesBookmarkedPaths(t *testing.T) {
	store := &stubStore{records: map[string]Record{
		"/docs/report.pdf": {Path: "/docs/report.pdf", Note: "quarterly"},
		"/docs/sub/":       {Path: "/docs/sub/"},
	}}

	meta, err := Decorator(store)(context.Background(), []string{
		"/docs/report.pdf", "/docs/sub/", "/docs/plain.txt",
	})
	require.NoError(t, err)

	require.Len(t, meta, 2, "unbookmarked paths stay absent")
	assert.Equal(t, true, meta["/docs/report.pdf"]["bookmarked"])
	assert.Equal(t, "quarterly", meta["/docs/report.pdf"]["bookmarkNote"])
	assert.Equal(t, true, meta["/docs/sub/"]["bookmarked"])
	assert.NotContains(t, meta["/docs/sub/"], "bookmarkNote", "empty notes are omitted")
}

func TestDecorator_PropagatesStoreError(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}

	meta, err := Decorator(store)(context.Background(), []string{"/docs/a.txt"})
	assert.Error(t, err)
	assert.Nil(t, meta)
}
