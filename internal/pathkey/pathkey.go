// Package pathkey converts user-facing hierarchical paths to and from the
// flat keys stored in the backing object store.
//
// The store has no native folders: hierarchy is an illusion maintained by
// key naming. Content keys carry a single leading separator ("/docs/a.txt"),
// folder keys additionally carry a single trailing separator ("/docs/sub/"),
// and icon sidecar keys live under the reserved "icons/" subtree with no
// leading separator. Every function in this package is total and idempotent:
// any input string maps to exactly one canonical form, and re-encoding a
// canonical form is a no-op.
package pathkey

import "strings"

// Separator is the canonical path separator used in store keys.
const Separator = "/"

// IconPrefix is the reserved subtree holding icon sidecar objects.
// Keys under it are never surfaced as listable content.
const IconPrefix = "icons/"

// RootMarker is the synthetic zero-length object that makes the logical
// root listable. It is filtered from every listing.
const RootMarker = Separator

// ToStoreKey canonicalizes a user-facing path into the backing-store key.
// Platform-style separators are converted, repeated separators collapse,
// content keys gain a single leading separator, and icon keys lose theirs.
func ToStoreKey(path string) string {
	k := collapse(path)
	if isIconTrimmed(strings.TrimLeft(k, Separator)) {
		return strings.TrimLeft(k, Separator)
	}
	if !strings.HasPrefix(k, Separator) {
		k = Separator + k
	}
	return k
}

// ToDisplayPath canonicalizes a store key into the path shown to callers.
// Legacy keys written without a leading separator display identically to
// their canonical twins, which is what listing deduplication keys on.
func ToDisplayPath(key string) string {
	p := collapse(key)
	if !strings.HasPrefix(p, Separator) {
		p = Separator + p
	}
	return p
}

// IsFolder reports whether key denotes a folder (trailing separator).
func IsFolder(key string) bool {
	return strings.HasSuffix(key, Separator)
}

// IsIconKey reports whether key falls inside the reserved icon subtree,
// regardless of any leading separators.
func IsIconKey(key string) bool {
	return isIconTrimmed(strings.TrimLeft(collapse(key), Separator))
}

// FolderKey returns the canonical folder form of path: a content key with
// exactly one trailing separator.
func FolderKey(path string) string {
	k := ToStoreKey(path)
	if !strings.HasSuffix(k, Separator) {
		k += Separator
	}
	return k
}

// Join appends name under the canonical folder form of prefix.
func Join(prefix, name string) string {
	return ToStoreKey(FolderKey(prefix) + strings.Trim(collapse(name), Separator))
}

// BaseName returns the final path segment of key, without any trailing
// separator. The root itself has no name and yields "".
func BaseName(key string) string {
	k := strings.TrimRight(collapse(key), Separator)
	if i := strings.LastIndex(k, Separator); i >= 0 {
		return k[i+1:]
	}
	return k
}

// ParentPrefix returns the canonical folder containing key.
func ParentPrefix(key string) string {
	k := strings.TrimRight(ToDisplayPath(key), Separator)
	i := strings.LastIndex(k, Separator)
	if i <= 0 {
		return Separator
	}
	return k[:i+1]
}

// Ext returns the lowercased extension of the final segment including the
// dot, or "" when the segment has none.
func Ext(key string) string {
	name := BaseName(key)
	if i := strings.LastIndex(name, "."); i > 0 {
		return strings.ToLower(name[i:])
	}
	return ""
}

// Variants returns the set of backing-key prefixes a listing must merge to
// cover one logical folder. Canonical keys carry a leading separator;
// deployments migrated from older key formats may also hold keys without
// one, so both spellings are probed and results deduplicated by display
// path. The canonical variant is always first.
func Variants(prefix string) []string {
	canonical := FolderKey(prefix)
	legacy := strings.TrimPrefix(canonical, Separator)
	if legacy == canonical {
		return []string{canonical}
	}
	return []string{canonical, legacy}
}

// KeyVariants returns the spellings a per-object operation must consider
// for one logical file: the canonical store key first, then the legacy
// form without the leading separator when it is distinct. Icon keys and
// the root have a single spelling.
func KeyVariants(path string) []string {
	canonical := ToStoreKey(path)
	legacy := strings.TrimPrefix(canonical, Separator)
	if legacy == canonical || legacy == "" {
		return []string{canonical}
	}
	return []string{canonical, legacy}
}

// collapse converts platform-style separators and squeezes runs of
// separators down to one.
func collapse(s string) string {
	s = strings.ReplaceAll(s, `\`, Separator)
	for strings.Contains(s, Separator+Separator) {
		s = strings.ReplaceAll(s, Separator+Separator, Separator)
	}
	return s
}

func isIconTrimmed(k string) bool {
	return k == strings.TrimSuffix(IconPrefix, Separator) || strings.HasPrefix(k, IconPrefix)
}
