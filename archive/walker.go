// Package archive builds Walk abstraction and member access on top of
// "archive/zip". EPUB books are zip containers.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains name of the archive being
// walked. The file argument is the zip.File structure for file in archive
// which satisfies match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Reader gives access to members of a single zip container.
type Reader struct {
	name   string
	zr     *zip.Reader
	closer io.Closer
}

// Open opens zip container on disk.
func Open(name string) (*Reader, error) {
	rc, err := zip.OpenReader(name)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	return &Reader{name: name, zr: &rc.Reader, closer: rc}, nil
}

// NewReader wraps zip data already available in memory or in another
// archive. Name is used for reporting only.
func NewReader(r io.ReaderAt, size int64, name string) (*Reader, error) {
	// insecure names are rejected by Walk with better diagnostics
	zr, err := zip.NewReader(r, size)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	return &Reader{name: name, zr: zr}, nil
}

// NewBytesReader is NewReader for zip data in memory.
func NewBytesReader(data []byte, name string) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)), name)
}

func (r *Reader) Name() string {
	return r.name
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Walk walks the all files in the archive which names start with prefix,
// calling walkFn for each item. Entries with path traversal components
// ("..") or absolute paths stop processing with an error to prevent Zip Slip
// attacks.
func (r *Reader) Walk(prefix string, walkFn WalkFunc) error {
	for _, f := range r.zr.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() && strings.HasPrefix(name, prefix) {
			if err := walkFn(r.name, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns names of files under prefix with given suffix, in archive
// order. Suffix is compared case-insensitively, empty suffix matches all.
func (r *Reader) List(prefix, suffix string) ([]string, error) {
	var names []string
	err := r.Walk(prefix, func(_ string, f *zip.File) error {
		if suffix == "" || strings.HasSuffix(strings.ToLower(f.Name), strings.ToLower(suffix)) {
			names = append(names, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Find looks up archive member by name, first exact match, then ignoring
// case. Returns nil if nothing is found.
func (r *Reader) Find(name string) *zip.File {
	for _, f := range r.zr.File {
		if f.Name == name {
			return f
		}
	}
	for _, f := range r.zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// Walk opens archive on disk and walks files in it. See Reader.Walk.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := Open(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Walk(prefix, walkFn)
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
