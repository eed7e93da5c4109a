// Package crabbypath teaches the Go type system about two kinds of path
// used throughout crabby: an AbsoluteSystemPath (rooted at the filesystem
// root, using the platform separator) and an AnchoredSystemPath (rooted at
// an install's project root, portable between platforms until it is
// restored against an anchor).
//
// This is a deliberately small subset of the distinction turborepo's
// turbopath package draws between six path flavors; crabby never needs to
// round-trip a path through a unix-style representation, so only the two
// types that matter for module-tree construction are kept.
package crabbypath

import (
	"os"
	"path/filepath"
)

const dirPermissions = 0o755

// AbsoluteSystemPath is an absolute, platform-native filesystem path.
type AbsoluteSystemPath string

// AnchoredSystemPath is a path relative to some AbsoluteSystemPath anchor,
// stored without a leading separator.
type AnchoredSystemPath string

// New casts a string known to already be absolute into an AbsoluteSystemPath.
func New(path string) AbsoluteSystemPath {
	return AbsoluteSystemPath(path)
}

func (p AbsoluteSystemPath) String() string {
	return string(p)
}

// Join appends path segments using the platform separator.
func (p AbsoluteSystemPath) Join(segments ...string) AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Join(append([]string{string(p)}, segments...)...))
}

// MkdirAll implements os.MkdirAll for this path.
func (p AbsoluteSystemPath) MkdirAll() error {
	return os.MkdirAll(string(p), dirPermissions)
}

// Exists reports whether something exists at this path.
func (p AbsoluteSystemPath) Exists() bool {
	_, err := os.Lstat(string(p))
	return err == nil
}

// RemoveAll implements os.RemoveAll for this path.
func (p AbsoluteSystemPath) RemoveAll() error {
	return os.RemoveAll(string(p))
}

func (p AnchoredSystemPath) String() string {
	return string(p)
}

// RestoreAnchor prefixes the AnchoredSystemPath with its anchor, producing
// an AbsoluteSystemPath.
func (p AnchoredSystemPath) RestoreAnchor(anchor AbsoluteSystemPath) AbsoluteSystemPath {
	return AbsoluteSystemPath(filepath.Join(anchor.String(), string(p)))
}

// FromSlash converts a package name's "/"-separated scope component (as in
// "@scope/pkg") into an AnchoredSystemPath using the platform separator,
// without mutating the name anywhere else it is used in memory.
func FromSlash(name string) AnchoredSystemPath {
	return AnchoredSystemPath(filepath.FromSlash(name))
}
