// Package memory provides a thread-safe in-memory filestore.Store.
// Suitable for tests and demos; contents are lost on process exit.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jmcleod/sharedrop/filestore"
)

type file struct {
	entry   filestore.Entry
	content []byte
}

// Store is a thread-safe in-memory implementation of filestore.Store.
type Store struct {
	mu    sync.RWMutex
	files map[string]file
	now   func() time.Time
}

var _ filestore.Store = (*Store)(nil)

// NewStore creates an empty in-memory Store.
func NewStore() *Store {
	return &Store{
		files: make(map[string]file),
		now:   time.Now,
	}
}

// SetClock replaces the time source. Tests use it to pin stored-name
// prefixes.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) Save(ctx context.Context, name string, content io.Reader) (*filestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uploadedAt := s.now()
	stored := filestore.StoredName(name, uploadedAt)
	if _, ok := s.files[stored]; ok {
		// Same name within the same millisecond. The disk backend refuses
		// this with O_EXCL; match it instead of overwriting.
		return nil, fmt.Errorf("%s: %w", stored, filestore.ErrExists)
	}
	entry := filestore.Entry{
		Name:         stored,
		OriginalName: name,
		Size:         int64(len(data)),
		UploadedAt:   uploadedAt,
	}
	s.files[stored] = file{entry: entry, content: data}
	return &entry, nil
}

func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, *filestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[name]
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
	}
	entry := f.entry
	return io.NopCloser(bytes.NewReader(f.content)), &entry, nil
}

func (s *Store) List(ctx context.Context) ([]filestore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]filestore.Entry, 0, len(s.files))
	for _, f := range s.files {
		entries = append(entries, f.entry)
	}
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, filestore.ErrNotFound)
	}
	delete(s.files, name)
	return nil
}

func (s *Store) Rename(ctx context.Context, oldName, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[oldName]
	if !ok {
		return fmt.Errorf("%s: %w", oldName, filestore.ErrNotFound)
	}
	if _, ok := s.files[newName]; ok {
		return fmt.Errorf("%s: %w", newName, filestore.ErrExists)
	}
	f.entry.Name = newName
	s.files[newName] = f
	delete(s.files, oldName)
	return nil
}
