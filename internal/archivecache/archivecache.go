// Package archivecache implements the content-addressed store of
// downloaded archives keyed by (name, version) (§4.4). It mirrors
// turborepo's fsCache (cache/cache_fs.go): a per-user directory resolved
// once at construction, and atomic write-to-temp-then-rename so concurrent
// fetches of the same key never observe a partial file.
package archivecache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// DefaultRoot resolves the platform-dependent per-user cache directory
// (§6 "User-scope cache"), the same way turborepo's fs.GetTurboDataDir
// uses adrg/xdg.
func DefaultRoot() (string, error) {
	return xdg.CacheFile(filepath.Join("crabby", "archives"))
}

// Store is a content-addressed archive cache rooted at a directory.
type Store struct {
	root string
}

// New constructs a Store rooted at root, creating it if necessary.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive cache dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Path returns the on-disk path for a given (name, version), without
// checking whether it exists.
func (s *Store) Path(name, version string) string {
	escaped := strings.ReplaceAll(name, "/", "-")
	return filepath.Join(s.root, fmt.Sprintf("%s-%s.tgz", escaped, version))
}

// Produce fetches the archive bytes, normally by invoking the registry.
type Produce func() ([]byte, error)

// GetOrFill returns the cached bytes for (name, version) if present;
// otherwise it invokes produce, atomically persists the result, and
// returns those bytes (§4.4).
func (s *Store) GetOrFill(name, version string, produce Produce) ([]byte, error) {
	path := s.Path(name, version)

	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	data, err := produce()
	if err != nil {
		return nil, err
	}

	if err := s.writeAtomic(path, data); err != nil {
		// The download itself succeeded; a failure to persist the cache
		// entry should not fail the install, since the caller already has
		// the bytes it needs.
		return data, nil
	}
	return data, nil
}

// writeAtomic writes data to a temporary sibling of path and renames it
// into place, so readers never observe a partially-written file, and two
// concurrent writers of the same key race harmlessly to the same content
// (§4.4 "Concurrency").
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Clear removes every cached archive (SPEC_FULL.md supplemented feature
// "crabby cache clear", grounded on original_source/src/cache.rs).
func (s *Store) Clear() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(s.root, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}
