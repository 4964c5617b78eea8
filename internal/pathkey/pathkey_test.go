package pathkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToStoreKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty is root", "", "/"},
		{"root stays root", "/", "/"},
		{"adds leading separator", "docs/a.txt", "/docs/a.txt"},
		{"keeps leading separator", "/docs/a.txt", "/docs/a.txt"},
		{"collapses repeats", "//docs///a.txt", "/docs/a.txt"},
		{"converts backslashes", `\docs\sub\`, "/docs/sub/"},
		{"folder keeps single trailing separator", "/docs/sub//", "/docs/sub/"},
		{"icon key loses leading separator", "/icons/docs/a.icon.png", "icons/docs/a.icon.png"},
		{"icon key stays bare", "icons/docs/a.icon.png", "icons/docs/a.icon.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToStoreKey(tt.in))
		})
	}
}

func TestToStoreKey_Idempotent(t *testing.T) {
	inputs := []string{
		"", "/", "docs", "/docs/", "//a//b//c", `C:\stuff\x.png`,
		"icons/a.png", "/icons//a.png", "/docs/sub/file.txt", "...",
		"icons", "/icons/", "a b/c d.txt",
	}
	for _, in := range inputs {
		once := ToStoreKey(in)
		assert.Equal(t, once, ToStoreKey(once), "input %q", in)
	}
}

func TestToDisplayPath(t *testing.T) {
	assert.Equal(t, "/docs/a.txt", ToDisplayPath("docs/a.txt"))
	assert.Equal(t, "/docs/a.txt", ToDisplayPath("/docs/a.txt"))
	assert.Equal(t, "/docs/sub/", ToDisplayPath("docs//sub/"))
	// Legacy and canonical spellings of one object display identically.
	assert.Equal(t, ToDisplayPath("docs/a.txt"), ToDisplayPath("/docs/a.txt"))
}

func TestIsFolder(t *testing.T) {
	assert.True(t, IsFolder("/docs/"))
	assert.False(t, IsFolder("/docs/a.txt"))
}

func TestIsIconKey(t *testing.T) {
	assert.True(t, IsIconKey("icons/docs/a.icon.png"))
	assert.True(t, IsIconKey("/icons/docs/a.icon.png"))
	assert.True(t, IsIconKey("icons/"))
	assert.False(t, IsIconKey("/iconsense/a.txt"))
	assert.False(t, IsIconKey("/docs/icons.txt"))
}

func TestJoinAndFolderKey(t *testing.T) {
	assert.Equal(t, "/docs/new", Join("/docs/", "new"))
	assert.Equal(t, "/docs/new", Join("docs", "/new/"))
	assert.Equal(t, "/docs/", FolderKey("/docs"))
	assert.Equal(t, "/", FolderKey(""))
}

func TestBaseNameParentExt(t *testing.T) {
	assert.Equal(t, "a.txt", BaseName("/docs/a.txt"))
	assert.Equal(t, "sub", BaseName("/docs/sub/"))
	assert.Equal(t, "", BaseName("/"))
	assert.Equal(t, "/docs/", ParentPrefix("/docs/a.txt"))
	assert.Equal(t, "/docs/", ParentPrefix("/docs/sub/"))
	assert.Equal(t, "/", ParentPrefix("/a.txt"))
	assert.Equal(t, ".txt", Ext("/docs/a.TXT"))
	assert.Equal(t, "", Ext("/docs/noext"))
	assert.Equal(t, "", Ext("/docs/.hidden"))
}

func TestVariants(t *testing.T) {
	assert.Equal(t, []string{"/docs/", "docs/"}, Variants("/docs"))
	assert.Equal(t, []string{"/", ""}, Variants("/"))
}

func TestKeyVariants(t *testing.T) {
	assert.Equal(t, []string{"/docs/a.txt", "docs/a.txt"}, KeyVariants("/docs/a.txt"))
	assert.Equal(t, []string{"/docs/a.txt", "docs/a.txt"}, KeyVariants("docs/a.txt"))
	// Icon keys and the root have a single spelling.
	assert.Equal(t, []string{"icons/docs/a.txt.icon.png"}, KeyVariants("icons/docs/a.txt.icon.png"))
	assert.Equal(t, []string{"/"}, KeyVariants("/"))
}
