// Package local provides a disk-backed filestore.Store. File content lives
// as plain files under a managed directory; upload metadata (original name,
// upload time) is kept in a BBolt index next to them.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/sharedrop/filestore"
)

const indexFile = ".index.db"

var entriesBucket = []byte("entries")

// Store implements filestore.Store on a local directory.
type Store struct {
	dir string
	db  *bbolt.DB
	now func() time.Time
}

var _ filestore.Store = (*Store)(nil)

// NewStore opens (creating if needed) the managed directory and its index.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(dir, indexFile), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening file index: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising file index: %w", err)
	}
	return &Store{dir: dir, db: db, now: time.Now}, nil
}

// Close closes the underlying index database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// reserved reports whether name belongs to the store itself rather than the
// public namespace. List already skips the index; the other operations must
// treat it as nonexistent too.
func reserved(name string) bool {
	return name == indexFile
}

func (s *Store) putEntry(e *filestore.Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return tx.Bucket(entriesBucket).Put([]byte(e.Name), data)
	})
}

func (s *Store) getEntry(name string) (*filestore.Entry, bool) {
	var e filestore.Entry
	found := false
	_ = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(entriesBucket).Get([]byte(name))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if !found {
		return nil, false
	}
	return &e, true
}

func (s *Store) deleteEntry(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(entriesBucket).Delete([]byte(name))
	})
}

// Save writes content to a fresh timestamp-prefixed file and records its
// metadata in the index.
func (s *Store) Save(ctx context.Context, name string, content io.Reader) (*filestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uploadedAt := s.now()
	stored := filestore.StoredName(name, uploadedAt)

	f, err := os.OpenFile(s.path(stored), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	size, err := io.Copy(f, content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(s.path(stored))
		return nil, fmt.Errorf("writing file: %w", err)
	}

	entry := &filestore.Entry{
		Name:         stored,
		OriginalName: name,
		Size:         size,
		UploadedAt:   uploadedAt,
	}
	if err := s.putEntry(entry); err != nil {
		return nil, fmt.Errorf("indexing file: %w", err)
	}
	return entry, nil
}

// Open returns the file content plus its entry. Files present on disk but
// absent from the index (placed there out of band) still open, with metadata
// synthesised from the file info.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, *filestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if reserved(name) {
		return nil, nil, fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	entry, ok := s.getEntry(name)
	if !ok {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("stat file: %w", err)
		}
		entry = &filestore.Entry{Name: name, Size: info.Size(), UploadedAt: info.ModTime()}
	}
	return f, entry, nil
}

// List enumerates the directory fresh on every call, merging in index
// metadata where present.
func (s *Store) List(ctx context.Context) ([]filestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing upload directory: %w", err)
	}
	entries := make([]filestore.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || de.Name() == indexFile {
			continue
		}
		if e, ok := s.getEntry(de.Name()); ok {
			entries = append(entries, *e)
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, filestore.Entry{
			Name:       de.Name(),
			Size:       info.Size(),
			UploadedAt: info.ModTime(),
		})
	}
	return entries, nil
}

// Delete removes the file and its index record.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reserved(name) {
		return fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
		}
		return fmt.Errorf("deleting file: %w", err)
	}
	return s.deleteEntry(name)
}

// Rename moves oldName to newName, refusing to overwrite an existing target.
// The check and the rename are two steps, so a concurrent upload of the same
// target can still win the race; the original design accepts last-writer-wins
// for same-name races.
func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reserved(oldName) {
		return fmt.Errorf("%s: %w", oldName, filestore.ErrNotFound)
	}
	if reserved(newName) {
		return fmt.Errorf("%s: %w", newName, filestore.ErrInvalidName)
	}
	if _, err := os.Stat(s.path(newName)); err == nil {
		return fmt.Errorf("%s: %w", newName, filestore.ErrExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat target: %w", err)
	}
	if err := os.Rename(s.path(oldName), s.path(newName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", oldName, filestore.ErrNotFound)
		}
		return fmt.Errorf("renaming file: %w", err)
	}

	entry, ok := s.getEntry(oldName)
	if !ok {
		return nil
	}
	entry.Name = newName
	if err := s.putEntry(entry); err != nil {
		return fmt.Errorf("reindexing file: %w", err)
	}
	return s.deleteEntry(oldName)
}
