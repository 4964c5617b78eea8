package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/vdrive/internal/errs"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.With().Err(err).Logger().Error("failed to encode response")
	}
}

// writeError maps the error kind taxonomy onto HTTP status codes and
// logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	kind := "store_failed"

	switch {
	case errs.IsInvalidInput(err):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errs.IsNotFound(err):
		status, kind = http.StatusNotFound, "not_found"
	case errs.IsPermissionDenied(err):
		status, kind = http.StatusForbidden, "permission_denied"
	case errs.IsTimeout(err):
		status, kind = http.StatusGatewayTimeout, "timeout"
	case errs.IsConnectionFailed(err):
		kind = "connection_failed"
	}

	if status >= 500 {
		s.log.With().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger().Error("request failed")
	}

	s.writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	return nil
}
