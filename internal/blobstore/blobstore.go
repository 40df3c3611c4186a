// Package blobstore keeps uploaded device images as files in a single
// directory. A blob is addressed by an opaque reference: the file name
// the store chose when the blob was saved.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// sniffLen is how many bytes http.DetectContentType inspects.
	sniffLen = 512

	// maxExtLen caps the extension carried over from the original name.
	maxExtLen = 10
)

var (
	// ErrNotFound is returned when no blob exists for a reference.
	ErrNotFound = errors.New("blobstore: blob not found")

	// ErrInvalidReference is returned for references that could escape the
	// store directory or are otherwise malformed.
	ErrInvalidReference = errors.New("blobstore: invalid reference")

	// ErrTooLarge is returned when a blob exceeds the configured size limit.
	ErrTooLarge = errors.New("blobstore: blob too large")
)

// Store is a directory of blobs.
//
// Thread Safety:
//   - Safe for concurrent use; every Save writes a fresh file name.
type Store struct {
	dir      string
	maxBytes int64
}

// New creates the directory if needed. maxBytes <= 0 disables the size limit.
func New(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blobstore: directory is required")
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into a new blob and returns its reference. The extension
// of originalName, if short and alphanumeric, is kept so the files remain
// recognisable on disk.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	ref := uuid.NewString() + cleanExt(originalName)
	path := filepath.Join(s.dir, ref)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}

	n, err := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case err != nil:
		os.Remove(path) //nolint:errcheck // Best effort cleanup
		return "", fmt.Errorf("writing blob: %w", err)
	case closeErr != nil:
		os.Remove(path) //nolint:errcheck // Best effort cleanup
		return "", fmt.Errorf("closing blob: %w", closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		os.Remove(path) //nolint:errcheck // Best effort cleanup
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}

	return ref, nil
}

// Blob is an open blob. The caller must Close it.
type Blob struct {
	*os.File
	ContentType string
	Size        int64
}

// Open returns the blob for ref with its sniffed content type.
func (s *Store) Open(ref string) (*Blob, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // Error path
		return nil, fmt.Errorf("stat blob: %w", err)
	}

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close() //nolint:errcheck // Error path
		return nil, fmt.Errorf("reading blob: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close() //nolint:errcheck // Error path
		return nil, fmt.Errorf("rewinding blob: %w", err)
	}

	return &Blob{
		File:        f,
		ContentType: http.DetectContentType(buf[:n]),
		Size:        info.Size(),
	}, nil
}

// Delete removes a blob. Deleting a missing blob returns ErrNotFound.
func (s *Store) Delete(ref string) error {
	path, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting blob: %w", err)
	}
	return nil
}

// Exists reports whether a blob is present for ref.
func (s *Store) Exists(ref string) bool {
	path, err := s.path(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// path validates ref and maps it into the store directory.
func (s *Store) path(ref string) (string, error) {
	if err := ValidateReference(ref); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, ref), nil
}

// ValidateReference rejects empty references, path separators, dot
// segments and anything else that is not a plain file name.
func ValidateReference(ref string) error {
	switch {
	case ref == "", ref == ".", ref == "..":
		return ErrInvalidReference
	case strings.ContainsAny(ref, `/\`), strings.Contains(ref, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	case !fs.ValidPath(ref):
		return fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return nil
}

// cleanExt returns the lower-cased extension of name if it is short and
// alphanumeric, or "".
func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
