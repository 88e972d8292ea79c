// Package filestore provides the storage abstraction for shared files and
// the sanitization boundary for client-supplied names.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrExists is returned by Rename when the target name is taken.
	ErrExists = errors.New("file already exists")
	// ErrInvalidName is returned for names that fail CleanName.
	ErrInvalidName = errors.New("invalid file name")
)

// Entry describes one stored file.
type Entry struct {
	// Name is the stored name: a timestamp prefix plus the sanitized
	// original name. It is the handle for download, delete and rename.
	Name string `json:"name"`
	// OriginalName is the client-supplied name at upload time.
	OriginalName string    `json:"original_name,omitempty"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// Store is the durable file storage capability. Implementations must treat
// every name as already sanitized; the API layer calls CleanName first.
type Store interface {
	// Save stores content under a fresh collision-avoiding name derived
	// from name and returns the resulting entry.
	Save(ctx context.Context, name string, content io.Reader) (*Entry, error)
	// Open returns the content and entry for a stored name.
	Open(ctx context.Context, name string) (io.ReadCloser, *Entry, error)
	// List enumerates all entries. Each call is a fresh snapshot.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes a stored name. Returns ErrNotFound if absent.
	Delete(ctx context.Context, name string) error
	// Rename moves oldName to newName. Returns ErrNotFound if oldName is
	// absent and ErrExists if newName is taken.
	Rename(ctx context.Context, oldName, newName string) error
}

// CleanName validates and normalises a client-supplied file name. Names are
// untrusted path components: anything that could escape the managed
// directory is rejected before a storage handle is ever resolved.
func CleanName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: empty or dot name", ErrInvalidName)
	case strings.ContainsAny(name, "/\\"):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: name contains NUL", ErrInvalidName)
	}
	return name, nil
}

// StoredName derives the stored name for an upload: a millisecond timestamp
// prefix keeps concurrently uploaded same-named files from overwriting each
// other while preserving upload order.
func StoredName(name string, at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + name
}
