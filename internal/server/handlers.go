package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/vdrive/internal/errs"
	"github.com/koustreak/vdrive/internal/search"
)

// --- listing ---

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxItems := 0
	if raw := q.Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "max must be a non-negative integer"))
			return
		}
		maxItems = n
	}
	withIcons := q.Get("icons") == "true"

	result, err := s.drive.ListChildren(r.Context(), q.Get("path"), maxItems, withIcons)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// --- folders ---

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.drive.CreateFolder(r.Context(), req.Path, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"path": created})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	result, err := s.drive.DeleteFolder(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		NewName string `json:"newName"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.drive.RenameFolder(r.Context(), req.Path, req.NewName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// --- files ---

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.drive.DeleteFile(r.Context(), r.URL.Query().Get("path")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleRenameFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		NewName string `json:"newName"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.drive.RenameFile(r.Context(), req.Path, req.NewName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.drive.DownloadURL(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path        string `json:"path"`
		ContentType string `json:"contentType"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	url, err := s.drive.UploadURL(r.Context(), req.Path, req.ContentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// --- icons ---

// iconResponse carries a resolved icon URL; found is false when the item
// has no icon, which is a normal answer, not an error.
type iconResponse struct {
	URL   string `json:"url,omitempty"`
	Found bool   `json:"found"`
}

func (s *Server) handleIconURL(w http.ResponseWriter, r *http.Request) {
	url, found, err := s.icons.ResolveURL(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, iconResponse{URL: url, Found: found})
}

func (s *Server) handleIconUploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path      string `json:"path"`
		ImageType string `json:"imageType"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	url, err := s.icons.UploadURL(r.Context(), req.Path, req.ImageType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleIconRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	url, found, err := s.icons.Refresh(r.Context(), req.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, iconResponse{URL: url, Found: found})
}

// --- search ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := search.Query{
		Text: q.Get("q"),
		Kind: search.Kind(q.Get("kind")),
	}
	if raw := q.Get("types"); raw != "" {
		query.Types = strings.Split(raw, ",")
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "limit must be a non-negative integer"))
			return
		}
		query.Limit = n
	}

	var err error
	if query.Modified.From, err = parseTimeParam(q.Get("from")); err != nil {
		s.writeError(w, r, err)
		return
	}
	if query.Modified.To, err = parseTimeParam(q.Get("to")); err != nil {
		s.writeError(w, r, err)
		return
	}

	items, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []search.Item{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func parseTimeParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errs.Wrap(errs.ErrKindInvalidInput, "time filters must be RFC 3339", err)
	}
	return t, nil
}

// --- bookmarks ---

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	records, err := s.bookmarks.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type bookmark struct {
		Path      string `json:"path"`
		Note      string `json:"note,omitempty"`
		CreatedAt int64  `json:"createdAt"`
	}
	out := make([]bookmark, len(records))
	for i, rec := range records {
		out[i] = bookmark{Path: rec.Path, Note: rec.Note, CreatedAt: rec.CreatedAt.Unix()}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"bookmarks": out})
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		Note string `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.writeError(w, r, errs.New(errs.ErrKindInvalidInput, "path is required"))
		return
	}

	if err := s.bookmarks.Add(r.Context(), req.Path, req.Note); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": true})
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.bookmarks.Remove(r.Context(), r.URL.Query().Get("path")); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}
