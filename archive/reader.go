package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// MaxMemberSize limits decompressed size of a single archive member.
const MaxMemberSize int64 = 64 * 1024 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadBytes returns content of the named member with leading UTF-8 BOM
// removed.
func (r *Reader) ReadBytes(name string) ([]byte, error) {
	f := r.Find(name)
	if f == nil {
		return nil, fmt.Errorf("%s: member %q not found", r.name, name)
	}
	data, err := ReadFile(f, MaxMemberSize)
	if err != nil {
		return nil, err
	}
	return bytes.TrimPrefix(data, utf8BOM), nil
}

// ReadText returns content of the named member decoded to UTF-8. Encoding is
// detected from byte order mark, content type and content itself. Line
// endings are normalized to "\n".
func (r *Reader) ReadText(name, contentType string) (string, error) {
	data, err := r.ReadBytes(name)
	if err != nil {
		return "", err
	}
	return DecodeText(data, contentType)
}

// DecodeText converts data to UTF-8 text with "\n" line endings.
func DecodeText(data []byte, contentType string) (string, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("unable to decode text: %w", err)
	}
	s := strings.TrimPrefix(string(decoded), "\uFEFF")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}

// ReadFile reads the full contents of a zip member refusing entries with
// unsafe names or decompressing to more than limit bytes.
func ReadFile(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("zip entry %q: unsafe path", f.Name)
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("zip entry %q too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open zip entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	// declared size may lie
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read zip entry %q: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("zip entry %q decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}
	return data, nil
}
