package local_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/sharedrop/filestore"
	"github.com/jmcleod/sharedrop/filestore/local"
)

func newStore(t *testing.T) *local.Store {
	t.Helper()
	store, err := local.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveOpenRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	entry, err := store.Save(ctx, "hello.txt", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(entry.Name, "-hello.txt"))
	assert.Equal(t, "hello.txt", entry.OriginalName)
	assert.Equal(t, int64(11), entry.Size)

	content, got, err := store.Open(ctx, entry.Name)
	require.NoError(t, err)
	defer content.Close()
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, entry.Name, got.Name)
	assert.Equal(t, "hello.txt", got.OriginalName)
}

func TestSameNameUploadsDoNotCollide(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	first, err := store.Save(ctx, "dup.txt", strings.NewReader("one"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "dup.txt", strings.NewReader("two"))
	require.NoError(t, err)

	// Either the millisecond differs or O_EXCL would have failed the
	// second write; both must exist with distinct names.
	if first.Name == second.Name {
		t.Fatalf("stored names collided: %s", first.Name)
	}
}

func TestListIsFreshAndIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	_, err := store.Save(ctx, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "b.txt", strings.NewReader("b"))
	require.NoError(t, err)

	once, err := store.List(ctx)
	require.NoError(t, err)
	twice, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, once, 2)
	assert.ElementsMatch(t, once, twice)
}

func TestListSeesOutOfBandFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := local.NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "preexisting.txt"), []byte("x"), 0o600))

	entries, err := store.List(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "preexisting.txt", entries[0].Name)
	assert.Empty(t, entries[0].OriginalName)
}

func TestDelete(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	entry, err := store.Save(ctx, "gone.txt", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, entry.Name))

	_, _, err = store.Open(ctx, entry.Name)
	assert.ErrorIs(t, err, filestore.ErrNotFound)

	err = store.Delete(ctx, entry.Name)
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestRename(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	entry, err := store.Save(ctx, "old.txt", strings.NewReader("content"))
	require.NoError(t, err)

	require.NoError(t, store.Rename(ctx, entry.Name, "new.txt"))

	content, got, err := store.Open(ctx, "new.txt")
	require.NoError(t, err)
	defer content.Close()
	assert.Equal(t, "new.txt", got.Name)
	assert.Equal(t, "old.txt", got.OriginalName)

	_, _, err = store.Open(ctx, entry.Name)
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestRenameMissingSource(t *testing.T) {
	store := newStore(t)
	err := store.Rename(t.Context(), "missing.txt", "whatever.txt")
	assert.ErrorIs(t, err, filestore.ErrNotFound)
}

func TestRenameRefusesOverwrite(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	a, err := store.Save(ctx, "a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.Save(ctx, "b.txt", strings.NewReader("b"))
	require.NoError(t, err)

	err = store.Rename(ctx, a.Name, b.Name)
	assert.ErrorIs(t, err, filestore.ErrExists)

	// Target content untouched.
	content, _, err := store.Open(ctx, b.Name)
	require.NoError(t, err)
	defer content.Close()
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestIndexFileHiddenFromList(t *testing.T) {
	store := newStore(t)
	entries, err := store.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndexFileUnreachable(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	entry, err := store.Save(ctx, "file.txt", strings.NewReader("x"))
	require.NoError(t, err)

	// The index exists on disk but must behave as nonexistent through the
	// store API.
	_, _, err = store.Open(ctx, ".index.db")
	assert.ErrorIs(t, err, filestore.ErrNotFound)

	err = store.Delete(ctx, ".index.db")
	assert.ErrorIs(t, err, filestore.ErrNotFound)

	err = store.Rename(ctx, ".index.db", "stolen.db")
	assert.ErrorIs(t, err, filestore.ErrNotFound)

	err = store.Rename(ctx, entry.Name, ".index.db")
	assert.ErrorIs(t, err, filestore.ErrInvalidName)

	// The index survived and still resolves metadata.
	content, got, err := store.Open(ctx, entry.Name)
	require.NoError(t, err)
	defer content.Close()
	assert.Equal(t, "file.txt", got.OriginalName)
}
