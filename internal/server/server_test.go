package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/vdrive/internal/bookmarks"
	"github.com/koustreak/vdrive/internal/icons"
	"github.com/koustreak/vdrive/internal/logger"
	"github.com/koustreak/vdrive/internal/objstore/memory"
	"github.com/koustreak/vdrive/internal/search"
	"github.com/koustreak/vdrive/internal/vfs"
)

type fakeBookmarks struct {
	records map[string]bookmarks.Record
	err     error
}

func (f *fakeBookmarks) Ping(ctx context.Context) error { return nil }
func (f *fakeBookmarks) Close()                         {}

func (f *fakeBookmarks) Add(ctx context.Context, path, note string) error {
	if f.err != nil {
		return f.err
	}
	f.records[path] = bookmarks.Record{Path: path, Note: note, CreatedAt: time.Now()}
	return nil
}

func (f *fakeBookmarks) Remove(ctx context.Context, path string) error {
	delete(f.records, path)
	return nil
}

func (f *fakeBookmarks) List(ctx context.Context) ([]bookmarks.Record, error) {
	out := make([]bookmarks.Record, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeBookmarks) ForPaths(ctx context.Context, paths []string) (map[string]bookmarks.Record, error) {
	out := make(map[string]bookmarks.Record)
	for _, p := range paths {
		if rec, ok := f.records[p]; ok {
			out[p] = rec
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	log := logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})

	resolver := icons.NewResolver(store, nil)
	t.Cleanup(resolver.Shutdown)
	searcher := search.New(store, nil)
	t.Cleanup(searcher.Shutdown)

	drive := vfs.New(store, resolver, nil)
	bm := &fakeBookmarks{records: map[string]bookmarks.Record{}}

	return New(nil, log, store, drive, resolver, searcher, bm), store
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestList(t *testing.T) {
	srv, store := newTestServer(t)
	now := time.Now()
	store.Seed("/docs/a.txt", []byte("a"), now)
	store.Seed("/docs/sub/", nil, now)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/list?path=/docs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result vfs.ListResult
	decodeBody(t, rec, &result)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "/docs/a.txt", result.Files[0].Key)
	require.Len(t, result.Folders, 1)
	assert.Equal(t, "/docs/sub/", result.Folders[0].Key)
}

func TestList_BadMax(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/list?max=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Kind string `json:"kind"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "invalid_input", body.Kind)
}

func TestCreateFolderAndList(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/folders/",
		map[string]string{"path": "/docs/", "name": "reports"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Path string `json:"path"`
	}
	decodeBody(t, rec, &created)
	assert.Equal(t, "/docs/reports/", created.Path)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/list?path=/docs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result vfs.ListResult
	decodeBody(t, rec, &result)
	require.Len(t, result.Folders, 1)
}

func TestCreateFolder_EmptyName(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/folders/",
		map[string]string{"path": "/docs/", "name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenameFile(t *testing.T) {
	srv, store := newTestServer(t)
	store.Seed("/docs/old.txt", []byte("content"), time.Now())

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/files/rename",
		map[string]string{"path": "/docs/old.txt", "newName": "new.txt"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result vfs.RenameResult
	decodeBody(t, rec, &result)
	assert.Equal(t, "/docs/new.txt", result.To)
	assert.Equal(t, 1, result.Moved)
}

func TestDeleteFolder(t *testing.T) {
	srv, store := newTestServer(t)
	now := time.Now()
	store.Seed("/docs/", nil, now)
	store.Seed("/docs/a.txt", []byte("a"), now)
	store.Seed("/docs/b.txt", []byte("b"), now)

	rec := doJSON(t, srv.Handler(), http.MethodDelete, "/api/folders/?path=/docs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result vfs.DeleteResult
	decodeBody(t, rec, &result)
	assert.Equal(t, 3, result.Removed)
	assert.Empty(t, store.Keys())
}

func TestDownloadURL_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/files/download-url?path=/absent.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIconURL_NoIcon(t *testing.T) {
	srv, store := newTestServer(t)
	store.Seed("/docs/a.txt", []byte("a"), time.Now())

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/icons/url?path=/docs/a.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body iconResponse
	decodeBody(t, rec, &body)
	assert.False(t, body.Found)
	assert.Empty(t, body.URL)
}

func TestSearchEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	now := time.Now()
	store.Seed("/docs/report.pdf", []byte("p"), now)
	store.Seed("/docs/report.txt", []byte("t"), now)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/search?q=report&kind=files&types=pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []search.Item `json:"items"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "/docs/report.pdf", body.Items[0].Key)
}

func TestSearchEndpoint_BadTimeFilter(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/search?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint_StoreError(t *testing.T) {
	srv, store := newTestServer(t)
	store.OnList = func(prefix string) error { return errors.New("boom") }

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/search?q=x", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBookmarkRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/bookmarks/",
		map[string]string{"path": "/docs/report.pdf", "note": "quarterly"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/bookmarks/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "/docs/report.pdf"))

	rec = doJSON(t, srv.Handler(), http.MethodDelete, "/api/bookmarks/?path=/docs/report.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/api/bookmarks/", nil)
	assert.False(t, strings.Contains(rec.Body.String(), "/docs/report.pdf"))
}

func TestBookmarkRoutes_PathRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/bookmarks/",
		map[string]string{"note": "no path"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
