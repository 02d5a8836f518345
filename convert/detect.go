package convert

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// enough to see zip signature and stored mimetype member of EPUB container
const headerSize = 262

func readHeader(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return header[:n], nil
}

func fileHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readHeader(f)
}

// isEpub recognizes EPUB container either by its signature (mimetype member
// stored first) or, for sloppy producers, by zip signature and extension.
func isEpub(name string, header []byte) bool {
	if filetype.Is(header, "epub") {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".epub") && filetype.Is(header, "zip")
}

// isEpubFile checks if file on disk is EPUB book.
func isEpubFile(path string) (bool, error) {
	header, err := fileHeader(path)
	if err != nil {
		return false, err
	}
	return isEpub(path, header), nil
}

// isArchiveFile checks if file on disk is zip archive which may have books
// inside.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	header, err := fileHeader(path)
	if err != nil {
		return false, err
	}
	return filetype.Is(header, "zip") && !filetype.Is(header, "epub"), nil
}

// isEpubInArchive checks if archive member is EPUB book.
func isEpubInArchive(f *zip.File) (bool, error) {
	if f.FileInfo().IsDir() {
		return false, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	header, err := readHeader(r)
	if err != nil {
		return false, err
	}
	return isEpub(f.Name, header), nil
}
