// Package manifest reads and writes project and package manifests
// (package.json-shaped documents): the dependency mappings, scripts, and
// declared executables that drive dependency resolution and installation.
//
// The load/save shape mirrors turborepo's fs.PackageJSON: structured fields
// take priority on marshal, but unknown keys round-trip through a raw JSON
// side-channel so crabby never clobbers fields it doesn't understand.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Manifest is the decoded shape of a package.json-style document, whether
// it is the project's own manifest or one read back out of an extracted
// dependency's archive.
type Manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Workspaces      Workspaces        `json:"workspaces"`
	// Bin is either a bare string (one executable, named after Name) or a
	// mapping of executable name to script path within the package.
	Bin json.RawMessage `json:"bin,omitempty"`
	// Engines carries an optional runtime-version hint; crabby logs a
	// mismatch but never fails on it (no runtime is downloaded, §1 scope).
	Engines map[string]string `json:"engines,omitempty"`

	// RawJSON holds the full decoded document so unknown keys survive a
	// load/save round trip; structured fields win on conflict.
	RawJSON map[string]interface{} `json:"-"`
}

// Workspaces is the project manifest's optional ordered sequence of
// workspace glob patterns. Some ecosystems publish it as a bare array,
// others nest it under a "packages" key; both are accepted.
type Workspaces []string

type workspacesAlt struct {
	Packages []string `json:"packages,omitempty"`
}

// UnmarshalJSON accepts both `"workspaces": ["a","b"]` and
// `"workspaces": {"packages": ["a","b"]}`.
func (w *Workspaces) UnmarshalJSON(data []byte) error {
	alt := &workspacesAlt{}
	if err := json.Unmarshal(data, alt); err == nil && len(alt.Packages) > 0 {
		*w = Workspaces(alt.Packages)
		return nil
	}
	var plain []string
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	*w = plain
	return nil
}

// Empty returns a manifest with no dependencies, scripts, or executables.
// Used when an extracted package's manifest fails to parse (§4.7 step 4) —
// the install must not fail on a malformed dependency manifest.
func Empty(name string) *Manifest {
	return &Manifest{
		Name:            name,
		Dependencies:    map[string]string{},
		DevDependencies: map[string]string{},
	}
}

// Unmarshal decodes a byte slice into a Manifest, preserving unknown keys.
func Unmarshal(data []byte) (*Manifest, error) {
	data = stripBOM(data)

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w (content: %s)", err, truncate(data))
	}

	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w (content: %s)", err, truncate(data))
	}
	m.RawJSON = raw
	return m, nil
}

// Marshal serializes a Manifest back to pretty-printed JSON, merging
// structured fields over the raw JSON side-channel so that unknown keys
// read at load time are preserved in the written document.
func Marshal(m *Manifest) ([]byte, error) {
	structured, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var structuredFields map[string]interface{}
	if err := json.Unmarshal(structured, &structuredFields); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, len(m.RawJSON))
	for k, v := range m.RawJSON {
		fields[k] = v
	}
	for k, v := range structuredFields {
		if isEmpty(v) {
			delete(fields, k)
		} else {
			fields[k] = v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AllDependencies merges runtime and dev dependencies into one mapping.
// Per the data model invariant, a name appears in exactly one of the two
// source maps, so the merge never silently drops a constraint.
func (m *Manifest) AllDependencies() map[string]string {
	out := make(map[string]string, len(m.Dependencies)+len(m.DevDependencies))
	for k, v := range m.Dependencies {
		out[k] = v
	}
	for k, v := range m.DevDependencies {
		out[k] = v
	}
	return out
}

// Executables resolves the Bin field into a name -> script-path mapping.
// A bare string names one executable after the package's own Name.
func (m *Manifest) Executables() map[string]string {
	if len(m.Bin) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(m.Bin, &asString); err == nil {
		if asString == "" || m.Name == "" {
			return nil
		}
		base := m.Name
		if idx := strings.LastIndex(base, "/"); idx >= 0 {
			base = base[idx+1:]
		}
		return map[string]string{base: asString}
	}
	var asMap map[string]string
	if err := json.Unmarshal(m.Bin, &asMap); err == nil {
		return asMap
	}
	return nil
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(bytes.TrimSpace(data), []byte{0xEF, 0xBB, 0xBF})
}

func truncate(data []byte) string {
	const max = 256
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
