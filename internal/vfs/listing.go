package vfs

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/vdrive/internal/logger"
	"github.com/koustreak/vdrive/internal/objstore"
	"github.com/koustreak/vdrive/internal/pathkey"
)

// ListChildren returns one page of the folder at prefix.
//
// The listing merges every canonical root variant of the prefix (legacy
// deployments hold keys both with and without the leading separator),
// deduplicates by canonical display path, and filters out the reserved
// icon subtree along with the folder's own marker object. A store failure
// on any page fails the whole call: there is no partial-success
// suppression. The merged page honors maxItems as a whole — entries
// consumed by one spelling shrink the budget left for the next — and a
// returned continuation token always belongs to the first spelling that
// truncated, canonical before legacy, the order a fresh listing probes
// them in. With withIcons set, icons are resolved for folders only —
// never files — under a small fixed fan-out; icon resolution is
// decoration, so an icon failure degrades to an icon-less entry rather
// than failing the listing.
func (s *Service) ListChildren(ctx context.Context, prefix string, maxItems int, withIcons bool) (*ListResult, error) {
	if maxItems <= 0 {
		maxItems = s.cfg.MaxItems
	}
	canonical := pathkey.FolderKey(prefix)

	result := &ListResult{}
	seen := make(map[string]bool)
	remaining := maxItems

	for _, variant := range pathkey.Variants(prefix) {
		if remaining <= 0 {
			// Page budget spent before this spelling was probed; report
			// the cut rather than overflowing the page.
			result.Truncated = true
			break
		}
		page, err := s.store.ListPage(ctx, objstore.ListOptions{
			Prefix:  variant,
			MaxKeys: remaining,
		})
		if err != nil {
			return nil, err
		}

		before := len(result.Folders) + len(result.Files)
		for _, p := range page.Prefixes {
			s.addFolder(result, seen, canonical, p)
		}
		for _, o := range page.Objects {
			if pathkey.IsFolder(o.Key) {
				// Legacy folder markers can surface as direct entries.
				s.addFolder(result, seen, canonical, o.Key)
				continue
			}
			display := pathkey.ToDisplayPath(o.Key)
			if pathkey.IsIconKey(o.Key) || seen[display] {
				continue
			}
			seen[display] = true
			result.Files = append(result.Files, FileEntry{
				Key:        display,
				Size:       o.Size,
				ModifiedAt: o.LastModified,
			})
		}

		remaining -= len(result.Folders) + len(result.Files) - before

		if page.Truncated {
			result.Truncated = true
			if result.ContinuationToken == "" {
				result.ContinuationToken = page.NextToken
			}
		}
	}

	sort.Slice(result.Folders, func(i, j int) bool { return result.Folders[i].Key < result.Folders[j].Key })
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Key < result.Files[j].Key })

	if withIcons && s.icons != nil {
		s.resolveFolderIcons(ctx, result.Folders)
	}
	if s.decorate != nil {
		s.applyDecoration(ctx, result)
	}

	return result, nil
}

// addFolder records one folder entry, filtering the icon subtree, the
// listed folder's own marker, and the synthetic root marker, and
// deduplicating across root variants.
func (s *Service) addFolder(result *ListResult, seen map[string]bool, canonical, key string) {
	if pathkey.IsIconKey(key) {
		return
	}
	display := pathkey.ToDisplayPath(key)
	if display == canonical || display == pathkey.RootMarker || seen[display] {
		return
	}
	seen[display] = true
	result.Folders = append(result.Folders, FolderEntry{Key: display})
}

// resolveFolderIcons fills FolderEntry.IconURL under the configured
// fan-out. Per-folder failures are logged and leave the entry icon-less.
func (s *Service) resolveFolderIcons(ctx context.Context, folders []FolderEntry) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.IconConcurrency)
	for i := range folders {
		g.Go(func() error {
			url, found, err := s.icons.ResolveURL(gctx, folders[i].Key)
			if err != nil {
				logger.FromContext(ctx).With().
					Str("folder", folders[i].Key).
					Err(err).
					Logger().
					Warn("icon resolution failed")
				return nil
			}
			if found {
				folders[i].IconURL = url
			}
			return nil
		})
	}
	_ = g.Wait()
}

// applyDecoration invokes the enrichment callback once with every
// returned key and merges the result by exact key match. The decorator is
// an external collaborator the core can live without: its failure is
// logged and the listing goes out undecorated.
func (s *Service) applyDecoration(ctx context.Context, result *ListResult) {
	keys := make([]string, 0, len(result.Folders)+len(result.Files))
	for _, f := range result.Folders {
		keys = append(keys, f.Key)
	}
	for _, f := range result.Files {
		keys = append(keys, f.Key)
	}
	if len(keys) == 0 {
		return
	}

	meta, err := s.decorate(ctx, keys)
	if err != nil {
		logger.FromContext(ctx).With().Err(err).Logger().Warn("listing decoration failed")
		return
	}

	for i := range result.Folders {
		if m, ok := meta[result.Folders[i].Key]; ok {
			result.Folders[i].Metadata = m
		}
	}
	for i := range result.Files {
		if m, ok := meta[result.Files[i].Key]; ok {
			result.Files[i].Metadata = m
		}
	}
}
