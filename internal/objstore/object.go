package objstore

import (
	"encoding/json"
	"io"
	"time"
)

// ObjectInfo describes a single stored object.
type ObjectInfo struct {
	// Key is the full backing-store key (e.g. "/docs/report.pdf").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	// ContentType is the MIME type (e.g. "application/pdf").
	ContentType string

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string

	// LastModified is when the object was last written.
	LastModified time.Time
}

// Object is a streaming handle to an object's content.
// The caller MUST call Close() after reading to avoid resource leaks.
type Object interface {
	io.ReadCloser

	// Info returns the metadata for this object.
	Info() *ObjectInfo
}

// ListOptions controls how ListPage filters and paginates results.
type ListOptions struct {
	// Prefix restricts results to keys starting with this string.
	Prefix string

	// Recursive, when true, lists every key under the prefix without
	// grouping. When false (default), keys sharing a sub-prefix up to the
	// next separator are grouped into Page.Prefixes.
	Recursive bool

	// MaxKeys caps the number of results in the page. 0 means the
	// backend default.
	MaxKeys int

	// Token resumes listing after a previous Page.NextToken.
	// Pass "" to start from the beginning.
	Token string
}

// Page is one page of a prefix listing.
type Page struct {
	// Objects are the direct entries under the requested prefix.
	Objects []ObjectInfo

	// Prefixes are the immediate child prefixes (virtual folders),
	// each ending in the separator. Empty when listing recursively.
	Prefixes []string

	// NextToken resumes the listing where this page stopped.
	// Empty when the listing is exhausted.
	NextToken string

	// Truncated reports whether more results remain.
	Truncated bool
}

// KeyError records the failure of one key inside a batch operation.
type KeyError struct {
	Key string
	Err error
}

// MarshalJSON renders the wrapped error as its message so batch failures
// survive serialization.
func (e KeyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key   string `json:"key"`
		Error string `json:"error"`
	}{Key: e.Key, Error: e.Err.Error()})
}

// BatchResult reports the outcome of a best-effort batch operation.
// Callers must treat these counts as authoritative: a batch with failures
// is a partial success, not an error.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failures  []KeyError
}

// Merge folds other into r.
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failures = append(r.Failures, other.Failures...)
}
