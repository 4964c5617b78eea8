package vfs

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/vdrive/internal/errs"
	"github.com/koustreak/vdrive/internal/objstore"
	"github.com/koustreak/vdrive/internal/pathkey"
)

// CreateFolder writes the zero-length marker object that makes an
// otherwise-empty folder listable, and returns the created folder's path.
func (s *Service) CreateFolder(ctx context.Context, prefix, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "name required")
	}

	key := pathkey.FolderKey(pathkey.Join(prefix, name))
	if err := s.store.Put(ctx, key, bytes.NewReader(nil), 0, ""); err != nil {
		return "", err
	}
	return key, nil
}

// DeleteFile removes the object at key under every spelling the backing
// store may hold it, then drops its icon sidecars. Idempotent: a missing
// key is not an error at this layer.
func (s *Service) DeleteFile(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return errs.New(errs.ErrKindInvalidInput, "key required")
	}
	for _, variant := range pathkey.KeyVariants(key) {
		if err := s.store.Remove(ctx, variant); err != nil {
			return err
		}
	}
	if s.icons != nil {
		s.icons.RemoveForItem(ctx, key)
	}
	return nil
}

// DeleteFolder removes every object under prefix, enumerating page by
// page and deleting in batches until the store reports nothing further.
// An already-empty folder deletes successfully with a zero count.
// Best-effort: per-key failures are collected and the enumeration moves
// on, so one stuck object cannot wedge the whole delete.
func (s *Service) DeleteFolder(ctx context.Context, prefix string) (*DeleteResult, error) {
	result := &DeleteResult{}

	for _, variant := range pathkey.Variants(prefix) {
		token := ""
		for {
			page, err := s.store.ListPage(ctx, objstore.ListOptions{
				Prefix:    variant,
				Recursive: true,
				MaxKeys:   s.cfg.DeleteBatchSize,
				Token:     token,
			})
			if err != nil {
				return result, err
			}
			if len(page.Objects) == 0 && !page.Truncated {
				break
			}

			keys := make([]string, 0, len(page.Objects))
			for _, o := range page.Objects {
				keys = append(keys, o.Key)
			}

			batch := s.store.RemoveBatch(ctx, keys)
			result.Attempted += batch.Attempted
			result.Removed += batch.Succeeded
			result.Failures = append(result.Failures, batch.Failures...)

			if !page.Truncated {
				break
			}
			token = page.NextToken
		}
	}

	if s.icons != nil {
		s.icons.RemoveForFolder(ctx, prefix)
	}
	return result, nil
}

// RenameFile renames the file at oldPath to newName inside the same
// folder, emulated as copy-then-delete. Not atomic: a crash between the
// two calls leaves both keys present, which a re-issued rename resolves.
// Present icon sidecars move with the file, best-effort.
func (s *Service) RenameFile(ctx context.Context, oldPath, newName string) (*RenameResult, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "name required")
	}
	if strings.Contains(newName, pathkey.Separator) || strings.Contains(newName, `\`) {
		return nil, errs.New(errs.ErrKindInvalidInput, "name must not contain separators")
	}

	oldKey := pathkey.ToStoreKey(oldPath)
	if oldKey == pathkey.RootMarker || pathkey.IsFolder(oldKey) {
		return nil, errs.New(errs.ErrKindInvalidInput, "expected a file path")
	}

	newKey := pathkey.Join(pathkey.ParentPrefix(oldKey), newName)
	result := &RenameResult{From: pathkey.ToDisplayPath(oldKey), To: pathkey.ToDisplayPath(newKey)}
	if newKey == oldKey {
		return result, nil
	}

	// The object may sit under either leading-separator spelling; rename
	// every spelling that exists, consolidating both onto the canonical
	// destination key.
	moved := false
	for _, variant := range pathkey.KeyVariants(oldKey) {
		if _, err := s.store.Stat(ctx, variant); err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if err := s.renameObject(ctx, variant, newKey, result); err != nil {
			return nil, err
		}
		moved = true
	}
	if !moved {
		return nil, errs.New(errs.ErrKindNotFound, "no such file: "+result.From)
	}

	if s.icons != nil {
		s.icons.RenameForItem(ctx, result.From, result.To)
	}
	return result, nil
}

// RenameFolder renames the folder at oldPath to newName inside the same
// parent, copying every member to its new key and deleting the original.
// Best-effort: per-member failures accumulate in the result while the
// rename continues, so a partial rename is reported, never hidden.
func (s *Service) RenameFolder(ctx context.Context, oldPath, newName string) (*RenameResult, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "name required")
	}
	if strings.Contains(newName, pathkey.Separator) || strings.Contains(newName, `\`) {
		return nil, errs.New(errs.ErrKindInvalidInput, "name must not contain separators")
	}

	oldPrefix := pathkey.FolderKey(oldPath)
	if oldPrefix == pathkey.RootMarker {
		return nil, errs.New(errs.ErrKindInvalidInput, "cannot rename the root")
	}
	newPrefix := pathkey.FolderKey(pathkey.Join(pathkey.ParentPrefix(oldPrefix), newName))

	result := &RenameResult{From: oldPrefix, To: newPrefix}
	if newPrefix == oldPrefix {
		return result, nil
	}
	if isSubPrefix(oldPrefix, newPrefix) {
		return nil, errs.New(errs.ErrKindInvalidInput, "cannot rename a folder into itself")
	}

	if err := s.renameFolderExact(ctx, oldPrefix, newPrefix, result); err != nil {
		return nil, err
	}

	if s.icons != nil {
		s.icons.RenameForItem(ctx, oldPrefix, newPrefix)
	}
	return result, nil
}

// DownloadURL mints a time-limited download URL for the object at key,
// resolving which spelling of the key actually holds it so the URL never
// points at an empty spelling of a listed file.
func (s *Service) DownloadURL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "key required")
	}
	return s.store.PresignGet(ctx, s.resolveFileKey(ctx, key), s.cfg.DownloadURLTTL)
}

// UploadURL mints a time-limited upload URL for key, optionally pinned to
// contentType.
func (s *Service) UploadURL(ctx context.Context, key, contentType string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "key required")
	}
	return s.store.PresignPut(ctx, pathkey.ToStoreKey(key), contentType, s.cfg.UploadURLTTL)
}

// resolveFileKey returns the first spelling of key present in the store,
// canonical preferred. When neither spelling is, the canonical one is
// returned so the store's own not-found surfaces to the caller.
func (s *Service) resolveFileKey(ctx context.Context, key string) string {
	variants := pathkey.KeyVariants(key)
	for _, variant := range variants {
		if _, err := s.store.Stat(ctx, variant); err == nil {
			return variant
		}
	}
	return variants[0]
}

// renameObject is the copy-then-delete pair for a single key, updating
// result counts. The copy failing aborts; the delete failing leaves the
// copy in place and is reported through the counts.
func (s *Service) renameObject(ctx context.Context, oldKey, newKey string, result *RenameResult) error {
	if err := s.store.Copy(ctx, oldKey, newKey); err != nil {
		return err
	}
	result.Moved++

	if err := s.store.Remove(ctx, oldKey); err != nil {
		result.Failures = append(result.Failures, objstore.KeyError{Key: oldKey, Err: err})
		return nil
	}
	result.Deleted++
	return nil
}

// renameFolderExact enumerates every key under each spelling of oldPrefix
// and moves it to newPrefix + suffix. Copy/delete pairs run back-to-back
// per object under a bounded fan-out; pairs of different objects may
// interleave. Enumeration failures abort (nothing to iterate), per-object
// failures do not.
func (s *Service) renameFolderExact(ctx context.Context, oldPrefix, newPrefix string, result *RenameResult) error {
	var mu sync.Mutex

	for _, variant := range pathkey.Variants(oldPrefix) {
		token := ""
		for {
			page, err := s.store.ListPage(ctx, objstore.ListOptions{
				Prefix:    variant,
				Recursive: true,
				MaxKeys:   s.cfg.DeleteBatchSize,
				Token:     token,
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(s.cfg.RenameConcurrency)
			for _, o := range page.Objects {
				g.Go(func() error {
					suffix := strings.TrimPrefix(o.Key, variant)
					dst := newPrefix + suffix

					if err := s.store.Copy(gctx, o.Key, dst); err != nil {
						mu.Lock()
						result.Failures = append(result.Failures, objstore.KeyError{Key: o.Key, Err: err})
						mu.Unlock()
						return nil
					}
					mu.Lock()
					result.Moved++
					mu.Unlock()

					if err := s.store.Remove(gctx, o.Key); err != nil {
						mu.Lock()
						result.Failures = append(result.Failures, objstore.KeyError{Key: o.Key, Err: err})
						mu.Unlock()
						return nil
					}
					mu.Lock()
					result.Deleted++
					mu.Unlock()
					return nil
				})
			}
			_ = g.Wait()

			if !page.Truncated {
				break
			}
			token = page.NextToken
		}
	}

	return nil
}
