// Package archive identifies and extracts deployment inputs.
//
// Two container formats are supported, tar and zip. Identification reads
// the head of the file and checks well-known signatures; it never trusts
// file extensions, because staged inputs have none.
package archive

import (
	"bytes"
	"io"
	"os"

	"github.com/landfall-sh/landfall/pkg/errors"
)

// Type identifies a supported archive format.
type Type string

const (
	TypeTar Type = "tar"
	TypeZip Type = "zip"
)

// sniffLen is how much of the file head identification may look at.
const sniffLen = 512

// tarMagicOffset is where the ustar magic sits in a tar header.
const tarMagicOffset = 257

var (
	// POSIX ustar: magic "ustar\x00" followed by version "00".
	tarMagicPosix = []byte("ustar\x0000")

	// Old GNU tar: magic "ustar " followed by " \x00".
	tarMagicGNU = []byte("ustar  \x00")

	zipMagics = [][]byte{
		{'P', 'K', 0x03, 0x04},
		{'P', 'K', 0x05, 0x06}, // empty archive
		{'P', 'K', 0x07, 0x08}, // spanned archive
	}
)

// ParseType converts a config value into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeTar:
		return TypeTar, nil
	case TypeZip:
		return TypeZip, nil
	default:
		return "", errors.Newf(errors.ErrUnknownArchive, "unknown archive type %q", s)
	}
}

// Detect identifies the archive type of the file at path from its signature.
func Detect(path string) (Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrIO, "cannot open input %s", path)
	}
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.Wrapf(err, errors.ErrIO, "cannot read input %s", path)
	}

	t, ok := sniff(buf[:n])
	if !ok {
		return "", errors.Newf(errors.ErrUnknownArchive, "cannot determine archive type of %s", path).
			WithDetail("read", n)
	}
	return t, nil
}

// Resolve returns the declared type when one is configured, otherwise
// sniffs the file. A declared type is trusted as-is.
func Resolve(declared string, path string) (Type, error) {
	if declared != "" {
		return ParseType(declared)
	}
	return Detect(path)
}

// sniff checks the signature table against a file head. Tar comes first,
// matching the table order.
func sniff(buf []byte) (Type, bool) {
	if len(buf) >= tarMagicOffset+len(tarMagicPosix) {
		head := buf[tarMagicOffset:]
		if bytes.HasPrefix(head, tarMagicPosix) || bytes.HasPrefix(head, tarMagicGNU) {
			return TypeTar, true
		}
	}

	for _, magic := range zipMagics {
		if bytes.HasPrefix(buf, magic) {
			return TypeZip, true
		}
	}

	return "", false
}
