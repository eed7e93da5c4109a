package extract

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type tarEntry struct {
	name     string
	content  string
	linkname string
	typeflag byte
}

func buildArchive(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		header := &tar.Header{
			Name:     e.name,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
			Mode:     0o644,
		}
		if header.Typeflag == 0 {
			header.Typeflag = tar.TypeReg
		}
		if header.Typeflag == tar.TypeReg {
			header.Size = int64(len(e.content))
		}
		assert.NoError(t, tw.WriteHeader(header))
		if header.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.content))
			assert.NoError(t, err)
		}
	}
	assert.NoError(t, tw.Close())
	assert.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestExtractStripsRootComponent(t *testing.T) {
	data := buildArchive(t, []tarEntry{
		{name: "package/index.js", content: "module.exports = {}"},
		{name: "package/lib/helper.js", content: "// helper"},
	})

	dest := filepath.Join(t.TempDir(), "left-pad")
	assert.NoError(t, Extract(data, dest))

	content, err := os.ReadFile(filepath.Join(dest, "index.js"))
	assert.NoError(t, err)
	assert.Equal(t, "module.exports = {}", string(content))

	_, err = os.Stat(filepath.Join(dest, "lib", "helper.js"))
	assert.NoError(t, err)
}

func TestExtractRejectsPathEscape(t *testing.T) {
	data := buildArchive(t, []tarEntry{
		{name: "package/../../etc/passwd", content: "pwned"},
	})

	dest := filepath.Join(t.TempDir(), "evil")
	err := Extract(data, dest)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPathEscape)
}

func TestExtractClearsPriorContents(t *testing.T) {
	dest := t.TempDir()
	stale := filepath.Join(dest, "stale.txt")
	assert.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	data := buildArchive(t, []tarEntry{
		{name: "package/fresh.txt", content: "new"},
	})
	assert.NoError(t, Extract(data, dest))

	_, err := os.Stat(stale)
	assert.Equal(t, true, os.IsNotExist(err))
}

func TestExtractSymlinks(t *testing.T) {
	data := buildArchive(t, []tarEntry{
		{name: "package/real.txt", content: "hi"},
		{name: "package/alias.txt", typeflag: tar.TypeSymlink, linkname: "real.txt"},
	})

	dest := filepath.Join(t.TempDir(), "pkg")
	assert.NoError(t, Extract(data, dest))

	target, err := os.Readlink(filepath.Join(dest, "alias.txt"))
	assert.NoError(t, err)
	assert.Equal(t, "real.txt", target)
}
