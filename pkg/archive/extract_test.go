package archive

import (
	"archive/tar"
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/testutil"
)

type tarEntry struct {
	name     string
	typeflag byte
	content  string
	linkname string
	mode     int64
}

func writeTarEntries(t *testing.T, entries []tarEntry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input")
	f, err := os.Create(path)
	require.NoError(t, err)

	tw := tar.NewWriter(f)
	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0644
		}
		hdr := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Mode:     mode,
			Linkname: e.linkname,
			Size:     int64(len(e.content)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err = tw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, f.Close())

	return path
}

func TestExtractTar(t *testing.T) {
	src := writeTarEntries(t, []tarEntry{
		{name: "bin/", typeflag: tar.TypeDir, mode: 0755},
		{name: "bin/run", typeflag: tar.TypeReg, content: "#!/bin/sh\n", mode: 0755},
		{name: "docs/readme.txt", typeflag: tar.TypeReg, content: "docs"},
		{name: "version", typeflag: tar.TypeReg, content: "1.2.3"},
	})

	dest := filepath.Join(t.TempDir(), "out")
	result, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Files)
	assert.Equal(t, 1, result.Dirs)

	testutil.AssertFileContent(t, filepath.Join(dest, "bin", "run"), "#!/bin/sh\n")
	testutil.AssertFileContent(t, filepath.Join(dest, "docs", "readme.txt"), "docs")
	testutil.AssertFileContent(t, filepath.Join(dest, "version"), "1.2.3")

	info, err := os.Stat(filepath.Join(dest, "bin", "run"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0100, "owner exec bit should survive extraction")
}

func TestExtractTarCreatesMissingParents(t *testing.T) {
	// Entries may arrive without explicit directory headers.
	src := writeTarEntries(t, []tarEntry{
		{name: "deep/ly/nested/file", typeflag: tar.TypeReg, content: "x"},
	})

	dest := filepath.Join(t.TempDir(), "out")
	_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.NoError(t, err)

	testutil.AssertFileContent(t, filepath.Join(dest, "deep", "ly", "nested", "file"), "x")
}

func TestExtractTarRejectsTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry tarEntry
	}{
		{"dotdot entry", tarEntry{name: "../evil", typeflag: tar.TypeReg, content: "x"}},
		{"nested dotdot entry", tarEntry{name: "ok/../../evil", typeflag: tar.TypeReg, content: "x"}},
		{"absolute entry", tarEntry{name: "/etc/evil", typeflag: tar.TypeReg, content: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeTarEntries(t, []tarEntry{tt.entry})
			dest := filepath.Join(t.TempDir(), "out")

			_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrExtraction))
		})
	}
}

func TestExtractTarSymlinks(t *testing.T) {
	t.Run("internal symlink is created", func(t *testing.T) {
		src := writeTarEntries(t, []tarEntry{
			{name: "current.txt", typeflag: tar.TypeReg, content: "v2"},
			{name: "latest", typeflag: tar.TypeSymlink, linkname: "current.txt"},
		})

		dest := filepath.Join(t.TempDir(), "out")
		result, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Links)

		target, err := os.Readlink(filepath.Join(dest, "latest"))
		require.NoError(t, err)
		assert.Equal(t, "current.txt", target)
	})

	t.Run("absolute symlink target is rejected", func(t *testing.T) {
		src := writeTarEntries(t, []tarEntry{
			{name: "passwd", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"},
		})

		dest := filepath.Join(t.TempDir(), "out")
		_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrExtraction))
	})

	t.Run("escaping symlink target is rejected", func(t *testing.T) {
		src := writeTarEntries(t, []tarEntry{
			{name: "sub/link", typeflag: tar.TypeSymlink, linkname: "../../outside"},
		})

		dest := filepath.Join(t.TempDir(), "out")
		_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrExtraction))
	})
}

func TestExtractTarHardlink(t *testing.T) {
	src := writeTarEntries(t, []tarEntry{
		{name: "data.bin", typeflag: tar.TypeReg, content: "payload"},
		{name: "alias.bin", typeflag: tar.TypeLink, linkname: "data.bin"},
	})

	dest := filepath.Join(t.TempDir(), "out")
	result, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Links)

	testutil.AssertFileContent(t, filepath.Join(dest, "alias.bin"), "payload")
}

func TestExtractTarHardlinkEscape(t *testing.T) {
	src := writeTarEntries(t, []tarEntry{
		{name: "alias", typeflag: tar.TypeLink, linkname: "../outside"},
	})

	dest := filepath.Join(t.TempDir(), "out")
	_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtraction))
}

func TestExtractTarRejectsDeviceEntries(t *testing.T) {
	src := writeTarEntries(t, []tarEntry{
		{name: "ok.txt", typeflag: tar.TypeReg, content: "x"},
		{name: "dev", typeflag: tar.TypeFifo},
	})

	dest := filepath.Join(t.TempDir(), "out")
	_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtraction))
}

func TestExtractZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)

	_, err = zw.Create("assets/")
	require.NoError(t, err)

	w, err := zw.Create("assets/style.css")
	require.NoError(t, err)
	_, err = w.Write([]byte("body {}"))
	require.NoError(t, err)

	w, err = zw.Create("index.html")
	require.NoError(t, err)
	_, err = w.Write([]byte("<html/>"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(t.TempDir(), "out")
	result, err := Extract(ExtractOptions{Source: path, Type: TypeZip, Dest: dest})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Files)
	assert.Equal(t, 1, result.Dirs)
	testutil.AssertFileContent(t, filepath.Join(dest, "assets", "style.css"), "body {}")
	testutil.AssertFileContent(t, filepath.Join(dest, "index.html"), "<html/>")
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "../evil"})
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	dest := filepath.Join(t.TempDir(), "out")
	_, err = Extract(ExtractOptions{Source: path, Type: TypeZip, Dest: dest})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtraction))
}

func TestExtractOverwritesExistingFiles(t *testing.T) {
	src := writeTarEntries(t, []tarEntry{
		{name: "config.txt", typeflag: tar.TypeReg, content: "new"},
	})

	dest := t.TempDir()
	testutil.CreateFile(t, dest, "config.txt", "old")
	testutil.CreateFile(t, dest, "untouched.txt", "keep me")

	_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.NoError(t, err)

	testutil.AssertFileContent(t, filepath.Join(dest, "config.txt"), "new")
	testutil.AssertFileContent(t, filepath.Join(dest, "untouched.txt"), "keep me")
}

func TestExtractUnknownType(t *testing.T) {
	_, err := Extract(ExtractOptions{Source: "whatever", Type: "rar", Dest: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownArchive))
}

func TestExtractCreatesDestination(t *testing.T) {
	src := writeTarEntries(t, []tarEntry{
		{name: "a.txt", typeflag: tar.TypeReg, content: "a"},
	})

	dest := filepath.Join(t.TempDir(), "does", "not", "exist")
	_, err := Extract(ExtractOptions{Source: src, Type: TypeTar, Dest: dest})
	require.NoError(t, err)
	testutil.AssertFileContent(t, filepath.Join(dest, "a.txt"), "a")
}
