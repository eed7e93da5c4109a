// Package lockfile implements crabby.lock: the persisted snapshot of the
// resolved dependency graph (§3 Lockfile). Each entry pins a package name to
// a concrete version, its tarball URL and content hash, and the flat
// mapping of its own dependencies (name -> the constraint that was
// resolved), which doubles as the lockfile graph's edge set.
//
// The store mirrors turborepo's fs.PackageJSON / manifest.Store pattern: a
// corrupt lockfile never blocks a fresh install (load returns the empty
// default and logs a warning), matching the Manifest & Lockfile store's
// §4.1 contract.
package lockfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Filename is the lockfile's file name, relative to the project root.
const Filename = "crabby.lock"

// Entry is one package's locked record.
type Entry struct {
	Version string            `json:"version"`
	Tarball string            `json:"tarball"`
	Hash    string            `json:"hash"`
	Deps    map[string]string `json:"deps"`
}

// Lockfile maps every package name appearing anywhere in the resolved
// graph to its Entry.
type Lockfile struct {
	Packages map[string]Entry `json:"packages"`
}

// Empty returns a lockfile with no entries.
func Empty() *Lockfile {
	return &Lockfile{Packages: map[string]Entry{}}
}

// Load reads and parses path. A missing or corrupt lockfile is not fatal:
// both return the empty lockfile, with corruption additionally logged as a
// warning (§4.1, §7 "Lockfile corrupted").
func Load(path string, logger hclog.Logger) *Lockfile {
	data, err := os.ReadFile(path)
	if err != nil {
		return Empty()
	}
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte{0xEF, 0xBB, 0xBF})

	lf := Empty()
	if err := json.Unmarshal(data, lf); err != nil {
		if logger != nil {
			logger.Warn("lockfile is corrupt, proceeding as a fresh install", "path", path, "error", err)
		}
		return Empty()
	}
	if lf.Packages == nil {
		lf.Packages = map[string]Entry{}
	}
	return lf
}

// Save pretty-prints lf to path with stable (alphabetic) key ordering,
// which encoding/json's map marshaling already provides.
func Save(path string, lf *Lockfile) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lf); err != nil {
		return fmt.Errorf("encode lockfile: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Get looks up an entry by name.
func (lf *Lockfile) Get(name string) (Entry, bool) {
	e, ok := lf.Packages[name]
	return e, ok
}

// Set records or overwrites an entry by name.
func (lf *Lockfile) Set(name string, e Entry) {
	if lf.Packages == nil {
		lf.Packages = map[string]Entry{}
	}
	lf.Packages[name] = e
}

// Clone returns a deep copy, used to hand the orchestrator an immutable
// read-only snapshot of the prior lockfile (§4.7 "Shared state").
func (lf *Lockfile) Clone() *Lockfile {
	out := Empty()
	for name, e := range lf.Packages {
		deps := make(map[string]string, len(e.Deps))
		for k, v := range e.Deps {
			deps[k] = v
		}
		out.Packages[name] = Entry{Version: e.Version, Tarball: e.Tarball, Hash: e.Hash, Deps: deps}
	}
	return out
}

// ValidateClosure checks the §3 invariant that every name referenced by any
// entry's Deps mapping also appears as a top-level key ("Closure", §8).
func (lf *Lockfile) ValidateClosure() error {
	for name, e := range lf.Packages {
		for dep := range e.Deps {
			if _, ok := lf.Packages[dep]; !ok {
				return fmt.Errorf("lockfile closure violated: %s depends on %s which has no top-level entry", name, dep)
			}
		}
	}
	return nil
}
