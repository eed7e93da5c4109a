// Package extract stream-decompresses and unpacks a downloaded archive
// into a destination directory, stripping the archive's single root
// component (§4.6).
//
// Archive decompression uses the standard library's archive/tar and
// compress/gzip: the teacher's own tar handling (cacheitem/restore.go)
// reaches for github.com/DataDog/zstd, but that package implements a
// different compression codec (zstd) for turborepo's own remote-cache
// artifacts, not the gzip ("deflate") tarballs a registry publishes — no
// library in the retrieval pack implements gzip-tar extraction any better
// than the standard library, so this leaf stays on stdlib (DESIGN.md).
//
// Path-safety (rejecting entries that escape destination) is grounded on
// cacheitem.checkName/canonicalizeName, which perform the equivalent
// well-formedness check for turborepo's own cache restore path; §9 open
// question 3 flags that the original Rust source has no such guard and
// that a faithful port must add one, so it is mandatory here rather than
// optional.
package extract

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/crabbypm/crabby/internal/crabbypath"
)

// ErrPathEscape is returned when an archive entry's resolved path would
// land outside the destination directory (§4.6 "Path safety", §7 "Path
// escape in archive").
var ErrPathEscape = errors.New("archive entry escapes destination")

// Extract decompresses and unpacks data into destination. destination is
// removed and re-created first (§4.6 "Destination preparation"); any
// missing parent (e.g. scope) directory is created along with it.
func Extract(data []byte, destination string) error {
	dest := crabbypath.New(destination)
	if err := dest.RemoveAll(); err != nil {
		return fmt.Errorf("clear destination %s: %w", destination, err)
	}
	if err := dest.MkdirAll(); err != nil {
		return fmt.Errorf("create destination %s: %w", destination, err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}

		remainder, ok := stripRoot(header.Name)
		if !ok {
			continue
		}

		target, err := safeJoin(destination, remainder)
		if err != nil {
			return pkgerrors.Wrapf(ErrPathEscape, "entry %q", header.Name)
		}

		if err := unpackEntry(tr, header, target); err != nil {
			return err
		}
	}
}

// stripRoot drops the first path component of an archive entry name (the
// archive's single root directory, conventionally named after the
// package). An entry consisting only of the root component is skipped.
func stripRoot(name string) (string, bool) {
	name = filepath.ToSlash(name)
	name = strings.TrimSuffix(name, "/")
	idx := strings.Index(name, "/")
	if idx < 0 {
		return "", false
	}
	remainder := name[idx+1:]
	if remainder == "" {
		return "", false
	}
	return remainder, true
}

// safeJoin joins destination and remainder, rejecting absolute paths and
// any ".." segment that would traverse above destination (§4.6).
func safeJoin(destination, remainder string) (string, error) {
	if filepath.IsAbs(remainder) {
		return "", ErrPathEscape
	}
	cleaned := filepath.Clean(filepath.Join(destination, filepath.FromSlash(remainder)))
	destClean := filepath.Clean(destination)
	if cleaned != destClean && !strings.HasPrefix(cleaned, destClean+string(filepath.Separator)) {
		return "", ErrPathEscape
	}
	return cleaned, nil
}

func unpackEntry(tr *tar.Reader, header *tar.Header, target string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode(header))
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // size bounded by archive, a trusted registry response
			return err
		}
		return nil
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(header.Linkname, target)
	default:
		return nil // ignore device files and other unsupported types
	}
}

func fileMode(header *tar.Header) os.FileMode {
	mode := header.FileInfo().Mode().Perm()
	if mode == 0 {
		return 0o644
	}
	return mode
}
