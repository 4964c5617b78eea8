// Package minio provides a MinIO implementation of objstore.Store.
//
// Usage:
//
//	cfg := objstore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "vdrive")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/vdrive/internal/errs"
	"github.com/koustreak/vdrive/internal/objstore"
)

// defaultPageSize is used when a ListPage caller does not cap the page.
const defaultPageSize = 1000

// removeBatchSize is the largest slice handed to the SDK's bulk delete in
// one go. The SDK further chunks per the S3 multi-delete limit.
const removeBatchSize = 1000

// Driver is a MinIO implementation of objstore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
	cfg    *objstore.Config
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
//
// The HTTP transport is shared across every call: bulk operations (rename,
// recursive delete) issue hundreds of requests and must reuse connections.
func New(ctx context.Context, cfg *objstore.Config) (*Driver, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: cfg.Bucket, cfg: cfg}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- objstore.Store implementation ---

// Ping verifies the MinIO server is reachable and the bucket exists.
func (d *Driver) Ping(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !ok {
		return errs.New(errs.ErrKindNotFound, "bucket does not exist: "+d.bucket)
	}
	return nil
}

// Close is a no-op for MinIO — the SDK client holds no resources beyond
// the shared transport's idle connections.
func (d *Driver) Close() error {
	return nil
}

// Get opens a streaming handle to the object at key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) Get(ctx context.Context, key string) (objstore.Object, error) {
	var out objstore.Object
	err := d.retry(ctx, func() error {
		obj, err := d.client.GetObject(ctx, d.bucket, key, miniogo.GetObjectOptions{})
		if err != nil {
			return err
		}

		// GetObject is lazy; Stat forces the request so absent keys fail here.
		stat, err := obj.Stat()
		if err != nil {
			obj.Close()
			return err
		}

		out = &object{
			ReadCloser: obj,
			info: &objstore.ObjectInfo{
				Key:          key,
				Size:         stat.Size,
				ContentType:  stat.ContentType,
				ETag:         stat.ETag,
				LastModified: stat.LastModified,
			},
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	return out, nil
}

// Put writes size bytes from r to key. Not retried: the reader cannot be
// rewound after a partial attempt.
func (d *Driver) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	callCtx, cancel := d.callContext(ctx)
	defer cancel()

	_, err := d.client.PutObject(callCtx, d.bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return mapError(err, "failed to put object")
	}
	return nil
}

// Stat returns metadata for the object at key without downloading it.
func (d *Driver) Stat(ctx context.Context, key string) (*objstore.ObjectInfo, error) {
	var stat miniogo.ObjectInfo
	err := d.retry(ctx, func() error {
		callCtx, cancel := d.callContext(ctx)
		defer cancel()

		var err error
		stat, err = d.client.StatObject(callCtx, d.bucket, key, miniogo.StatObjectOptions{})
		return err
	})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	return &objstore.ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

// Remove deletes the object at key. Deleting an absent key succeeds.
func (d *Driver) Remove(ctx context.Context, key string) error {
	err := d.retry(ctx, func() error {
		callCtx, cancel := d.callContext(ctx)
		defer cancel()

		return d.client.RemoveObject(callCtx, d.bucket, key, miniogo.RemoveObjectOptions{})
	})
	if err != nil {
		mapped := mapError(err, "failed to remove object")
		if errs.IsNotFound(mapped) {
			return nil
		}
		return mapped
	}
	return nil
}

// RemoveBatch deletes keys in bulk via the store's multi-delete API,
// chunked to removeBatchSize. Per-key failures are collected, never
// escalated.
func (d *Driver) RemoveBatch(ctx context.Context, keys []string) *objstore.BatchResult {
	result := &objstore.BatchResult{}

	for start := 0; start < len(keys); start += removeBatchSize {
		end := min(start+removeBatchSize, len(keys))
		chunk := keys[start:end]
		result.Attempted += len(chunk)

		objectsCh := make(chan miniogo.ObjectInfo, len(chunk))
		for _, k := range chunk {
			objectsCh <- miniogo.ObjectInfo{Key: k}
		}
		close(objectsCh)

		failed := 0
		for rerr := range d.client.RemoveObjects(ctx, d.bucket, objectsCh, miniogo.RemoveObjectsOptions{}) {
			if rerr.Err != nil {
				failed++
				result.Failures = append(result.Failures, objstore.KeyError{
					Key: rerr.ObjectName,
					Err: mapError(rerr.Err, "failed to remove object"),
				})
			}
		}
		result.Succeeded += len(chunk) - failed
	}

	return result
}

// Copy duplicates the object at src to dst server-side.
func (d *Driver) Copy(ctx context.Context, src, dst string) error {
	err := d.retry(ctx, func() error {
		callCtx, cancel := d.callContext(ctx)
		defer cancel()

		_, err := d.client.CopyObject(callCtx,
			miniogo.CopyDestOptions{Bucket: d.bucket, Object: dst},
			miniogo.CopySrcOptions{Bucket: d.bucket, Object: src},
		)
		return err
	})
	if err != nil {
		return mapError(err, "failed to copy object")
	}
	return nil
}

// ListPage returns one page of keys under opts.Prefix. The continuation
// token is the last key of the previous page (start-after semantics).
func (d *Driver) ListPage(ctx context.Context, opts objstore.ListOptions) (*objstore.Page, error) {
	limit := opts.MaxKeys
	if limit <= 0 {
		limit = defaultPageSize
	}

	var page *objstore.Page
	err := d.retry(ctx, func() error {
		callCtx, cancel := d.callContext(ctx)
		defer cancel()

		// Cancelling listCtx once the page is full releases the SDK's
		// producer goroutine.
		listCtx, stop := context.WithCancel(callCtx)
		defer stop()

		p := &objstore.Page{}
		n := 0
		for obj := range d.client.ListObjects(listCtx, d.bucket, miniogo.ListObjectsOptions{
			Prefix:     opts.Prefix,
			Recursive:  opts.Recursive,
			StartAfter: opts.Token,
		}) {
			if obj.Err != nil {
				return obj.Err
			}
			if n >= limit {
				p.Truncated = true
				break
			}

			// Non-recursive listings deliver common prefixes as entries
			// ending in the separator.
			if !opts.Recursive && len(obj.Key) > 0 && obj.Key[len(obj.Key)-1] == '/' && obj.Key != opts.Prefix {
				p.Prefixes = append(p.Prefixes, obj.Key)
			} else {
				p.Objects = append(p.Objects, objstore.ObjectInfo{
					Key:          obj.Key,
					Size:         obj.Size,
					ContentType:  obj.ContentType,
					ETag:         obj.ETag,
					LastModified: obj.LastModified,
				})
			}
			n++

			if n == limit {
				p.NextToken = obj.Key
			}
		}
		if !p.Truncated {
			p.NextToken = ""
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}
	return page, nil
}

// PresignGet returns a time-limited public download URL for the object.
func (d *Driver) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, d.bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to presign download")
	}
	return u.String(), nil
}

// PresignPut returns a time-limited upload URL for key. When contentType
// is non-empty the signature pins the upload to that type.
func (d *Driver) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	var (
		u   *url.URL
		err error
	)
	if contentType == "" {
		u, err = d.client.PresignedPutObject(ctx, d.bucket, key, ttl)
	} else {
		u, err = d.client.PresignHeader(ctx, http.MethodPut, d.bucket, key, ttl,
			url.Values{}, http.Header{"Content-Type": []string{contentType}})
	}
	if err != nil {
		return "", mapError(err, "failed to presign upload")
	}
	return u.String(), nil
}

// --- internal helpers ---

// callContext derives the per-call deadline from the caller's context.
func (d *Driver) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.CallTimeout)
}

// retry runs op under the configured transient-retry policy.
func (d *Driver) retry(ctx context.Context, op func() error) error {
	return objstore.Retry(ctx, d.cfg.Retry, isTransient, op)
}

// object wraps a MinIO GetObject response and exposes objstore.Object.
type object struct {
	io.ReadCloser
	info *objstore.ObjectInfo
}

func (o *object) Info() *objstore.ObjectInfo {
	return o.info
}
