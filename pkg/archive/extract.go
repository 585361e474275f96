package archive

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/logging"
)

// ExtractOptions configures an extraction run.
type ExtractOptions struct {
	// Source is the archive file to read.
	Source string

	// Type is the archive format. It must already be resolved; extraction
	// does no sniffing of its own.
	Type Type

	// Dest is the directory entries are written into. It is created if
	// missing. Existing files are overwritten, existing directories merged.
	Dest string
}

// ExtractResult reports what an extraction produced.
type ExtractResult struct {
	Files int
	Dirs  int
	Links int
}

// Extract unpacks the source archive into the destination directory.
// Entries that would land outside the destination abort the extraction.
func Extract(opts ExtractOptions) (*ExtractResult, error) {
	logger := logging.GetLogger("archive")
	defer logging.LogOperationStart(logger, "extract")()

	dest, err := filepath.Abs(opts.Dest)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot resolve destination %s", opts.Dest)
	}

	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot create destination %s", dest)
	}

	var result *ExtractResult
	switch opts.Type {
	case TypeTar:
		result, err = extractTar(opts.Source, dest)
	case TypeZip:
		result, err = extractZip(opts.Source, dest)
	default:
		return nil, errors.Newf(errors.ErrUnknownArchive, "unknown archive type %q", opts.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("source", opts.Source).
		Str("dest", dest).
		Str("type", string(opts.Type)).
		Int("files", result.Files).
		Int("dirs", result.Dirs).
		Msg("Archive extracted")

	return result, nil
}

func extractTar(src, dest string) (*ExtractResult, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot open archive %s", src)
	}
	defer func() {
		_ = f.Close()
	}()

	result := &ExtractResult{}
	tr := tar.NewReader(f)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot read tar entry in %s", src)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			target, err := safeJoin(dest, hdr.Name)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(target, dirMode(hdr.FileInfo().Mode())); err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot create directory %s", hdr.Name)
			}
			result.Dirs++

		case tar.TypeReg:
			target, err := safeJoin(dest, hdr.Name)
			if err != nil {
				return nil, err
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot write file %s", hdr.Name)
			}
			result.Files++

		case tar.TypeSymlink:
			target, err := safeJoin(dest, hdr.Name)
			if err != nil {
				return nil, err
			}
			if err := checkLinkTarget(dest, target, hdr.Linkname); err != nil {
				return nil, err
			}
			if err := writeSymlink(target, hdr.Linkname); err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot create symlink %s", hdr.Name)
			}
			result.Links++

		case tar.TypeLink:
			target, err := safeJoin(dest, hdr.Name)
			if err != nil {
				return nil, err
			}
			// Hard link names are archive-relative, same rules as entries.
			linkTarget, err := safeJoin(dest, hdr.Linkname)
			if err != nil {
				return nil, err
			}
			if err := writeHardlink(target, linkTarget); err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot create hard link %s", hdr.Name)
			}
			result.Links++

		case tar.TypeXGlobalHeader, tar.TypeXHeader:
			// PAX metadata, nothing to materialize.

		default:
			return nil, errors.Newf(errors.ErrExtraction, "unsupported tar entry type %d for %q", hdr.Typeflag, hdr.Name)
		}
	}

	return result, nil
}

func extractZip(src, dest string) (*ExtractResult, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot open zip archive %s", src)
	}
	defer func() {
		_ = zr.Close()
	}()

	result := &ExtractResult{}

	for _, entry := range zr.File {
		target, err := safeJoin(dest, entry.Name)
		if err != nil {
			return nil, err
		}

		mode := entry.Mode()

		switch {
		case entry.FileInfo().IsDir():
			if err := os.MkdirAll(target, dirMode(mode)); err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot create directory %s", entry.Name)
			}
			result.Dirs++

		case mode&os.ModeSymlink != 0:
			linkname, err := readZipEntry(entry)
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot read symlink entry %s", entry.Name)
			}
			if err := checkLinkTarget(dest, target, linkname); err != nil {
				return nil, err
			}
			if err := writeSymlink(target, linkname); err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot create symlink %s", entry.Name)
			}
			result.Links++

		default:
			rc, err := entry.Open()
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot open zip entry %s", entry.Name)
			}
			err = writeFile(target, rc, mode)
			_ = rc.Close()
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrExtraction, "cannot write file %s", entry.Name)
			}
			result.Files++
		}
	}

	return result, nil
}

// safeJoin joins an archive entry name onto the destination and rejects
// entries that would escape it.
func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errors.Newf(errors.ErrExtraction, "archive entry %q has an absolute path", name)
	}

	target := filepath.Join(dest, name)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", errors.Newf(errors.ErrExtraction, "archive entry %q escapes the destination", name)
	}

	return target, nil
}

// checkLinkTarget rejects symlinks whose resolved target leaves the
// destination. Relative targets are resolved against the link's directory.
func checkLinkTarget(dest, linkPath, linkname string) error {
	if filepath.IsAbs(linkname) {
		return errors.Newf(errors.ErrExtraction, "symlink target %q is absolute", linkname)
	}

	resolved := filepath.Join(filepath.Dir(linkPath), linkname)
	if resolved != dest && !strings.HasPrefix(resolved, dest+string(os.PathSeparator)) {
		return errors.Newf(errors.ErrExtraction, "symlink target %q escapes the destination", linkname)
	}

	return nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(mode))
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

func writeSymlink(target, linkname string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	// Overwrite deliberately, extraction over an existing tree is allowed.
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Symlink(linkname, target)
}

func writeHardlink(target, linkTarget string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Link(linkTarget, target)
}

func readZipEntry(entry *zip.File) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func dirMode(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0755
	}
	return perm
}

func fileMode(mode os.FileMode) os.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0644
	}
	return perm
}
