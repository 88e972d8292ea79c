package filestore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/sharedrop/filestore"
)

func TestCleanNameAccepts(t *testing.T) {
	for _, name := range []string{
		"report.pdf",
		"photo (1).jpg",
		"no-extension",
		"dots.in..middle.txt",
		"über.txt",
	} {
		got, err := filestore.CleanName(name)
		require.NoError(t, err, "name %q", name)
		assert.NotEmpty(t, got)
	}
}

func TestCleanNameRejectsTraversal(t *testing.T) {
	for _, name := range []string{
		"",
		"   ",
		".",
		"..",
		"../../etc/passwd",
		"../x",
		"/etc/passwd",
		"a/b.txt",
		`a\b.txt`,
		"nul\x00byte",
	} {
		_, err := filestore.CleanName(name)
		assert.ErrorIs(t, err, filestore.ErrInvalidName, "name %q", name)
	}
}

func TestCleanNameNormalises(t *testing.T) {
	// NFD "é" (e + combining acute) normalises to the NFC form.
	got, err := filestore.CleanName("café.txt")
	require.NoError(t, err)
	assert.Equal(t, "café.txt", got)
}

func TestStoredNameOrdering(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	first := filestore.StoredName("a.txt", base)
	second := filestore.StoredName("a.txt", base.Add(time.Millisecond))

	assert.Equal(t, "1700000000000-a.txt", first)
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}
