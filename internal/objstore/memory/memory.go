// Package memory provides an in-memory implementation of objstore.Store.
//
// It mirrors the backing store's flat-key semantics — prefix/delimiter
// listing with start-after tokens, server-side copy, idempotent delete,
// batched multi-delete — without any network. It backs unit tests and the
// local development mode, counts every call so cache behaviour is
// assertable, and exposes per-operation hooks for fault injection.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/vdrive/internal/errs"
	"github.com/koustreak/vdrive/internal/objstore"
)

// Counters records how many times each store operation ran.
type Counters struct {
	Get         int
	Put         int
	Stat        int
	Remove      int
	RemoveBatch int
	Copy        int
	List        int
	PresignGet  int
	PresignPut  int
}

type memObject struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// Store is an in-memory objstore.Store. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	objects map[string]memObject
	counts  Counters

	// Fault-injection hooks. When non-nil and returning a non-nil error,
	// the corresponding operation fails with that error. Used by tests to
	// simulate partial batch failures and store outages.
	OnCopy   func(src, dst string) error
	OnRemove func(key string) error
	OnList   func(prefix string) error
	OnStat   func(key string) error
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]memObject)}
}

// Seed writes content at key with its modification time set to mod.
// Test setup helper; does not touch the call counters.
func (s *Store) Seed(key string, content []byte, mod time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{
		data:         append([]byte(nil), content...),
		etag:         etagOf(content),
		lastModified: mod,
	}
}

// Counts returns a snapshot of the per-operation call counters.
func (s *Store) Counts() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// ResetCounts zeroes the call counters.
func (s *Store) ResetCounts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = Counters{}
}

// Keys returns every stored key in sorted order. Test helper.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- objstore.Store implementation ---

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) Get(ctx context.Context, key string) (objstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Get++

	obj, ok := s.objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key: "+key)
	}
	return &object{
		ReadCloser: io.NopCloser(bytes.NewReader(obj.data)),
		info:       infoFor(key, obj),
	}, nil
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errs.Wrap(errs.ErrKindStoreFailed, "failed to read put body", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Put++
	s.objects[key] = memObject{
		data:         data,
		contentType:  contentType,
		etag:         etagOf(data),
		lastModified: time.Now(),
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (*objstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Stat++

	if s.OnStat != nil {
		if err := s.OnStat(key); err != nil {
			return nil, err
		}
	}

	obj, ok := s.objects[key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key: "+key)
	}
	return infoFor(key, obj), nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Remove++

	if s.OnRemove != nil {
		if err := s.OnRemove(key); err != nil {
			return err
		}
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) RemoveBatch(ctx context.Context, keys []string) *objstore.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.RemoveBatch++

	result := &objstore.BatchResult{Attempted: len(keys)}
	for _, k := range keys {
		if s.OnRemove != nil {
			if err := s.OnRemove(k); err != nil {
				result.Failures = append(result.Failures, objstore.KeyError{Key: k, Err: err})
				continue
			}
		}
		delete(s.objects, k)
		result.Succeeded++
	}
	return result
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Copy++

	if s.OnCopy != nil {
		if err := s.OnCopy(src, dst); err != nil {
			return err
		}
	}

	obj, ok := s.objects[src]
	if !ok {
		return errs.New(errs.ErrKindNotFound, "no such key: "+src)
	}
	cp := obj
	cp.data = append([]byte(nil), obj.data...)
	cp.lastModified = time.Now()
	s.objects[dst] = cp
	return nil
}

func (s *Store) ListPage(ctx context.Context, opts objstore.ListOptions) (*objstore.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.List++

	if s.OnList != nil {
		if err := s.OnList(opts.Prefix); err != nil {
			return nil, err
		}
	}

	limit := opts.MaxKeys
	if limit <= 0 {
		limit = 1000
	}

	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, opts.Prefix) && k > opts.Token {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &objstore.Page{}
	seen := make(map[string]bool)
	emitted := 0
	lastConsumed := ""

	for _, k := range keys {
		rest := k[len(opts.Prefix):]

		if !opts.Recursive && rest != "" && strings.Contains(rest, "/") {
			cp := opts.Prefix + rest[:strings.Index(rest, "/")+1]
			if seen[cp] {
				lastConsumed = k
				continue
			}
			if emitted >= limit {
				page.Truncated = true
				page.NextToken = lastConsumed
				break
			}
			seen[cp] = true
			page.Prefixes = append(page.Prefixes, cp)
		} else {
			if emitted >= limit {
				page.Truncated = true
				page.NextToken = lastConsumed
				break
			}
			page.Objects = append(page.Objects, *infoFor(k, s.objects[k]))
		}
		emitted++
		lastConsumed = k
	}

	return page, nil
}

func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.PresignGet++

	if _, ok := s.objects[key]; !ok {
		return "", errs.New(errs.ErrKindNotFound, "no such key: "+key)
	}
	return presignURL("GET", key, ttl), nil
}

func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.PresignPut++
	return presignURL("PUT", key, ttl), nil
}

// --- helpers ---

func infoFor(key string, obj memObject) *objstore.ObjectInfo {
	return &objstore.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		ETag:         obj.etag,
		LastModified: obj.lastModified,
	}
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func presignURL(method, key string, ttl time.Duration) string {
	return fmt.Sprintf("https://memstore.invalid/%s?method=%s&expires=%d",
		url.PathEscape(strings.TrimPrefix(key, "/")), method, int64(ttl.Seconds()))
}

type object struct {
	io.ReadCloser
	info *objstore.ObjectInfo
}

func (o *object) Info() *objstore.ObjectInfo {
	return o.info
}
