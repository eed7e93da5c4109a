package manifest

import (
	"fmt"
	"os"
)

// ManifestFilename is the project manifest's file name, relative to the
// install's working directory (§6 file layout).
const ManifestFilename = "package.json"

// Load reads and parses the project manifest. A missing file is not an
// error during LoadOrDefault, but Load itself is used where the manifest
// is required to exist (e.g. reading an already-extracted dependency).
// Parse failures are fatal and include the offending content, per §4.1.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadOrDefault returns an empty manifest if path does not exist.
func LoadOrDefault(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Empty(""), nil
	}
	return Load(path)
}

// Save pretty-prints m to path with stable key ordering (handled by
// Marshal's use of encoding/json's deterministic map key sort).
func Save(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// AddDependency records name -> constraint in the runtime or dev mapping,
// removing it from the other mapping first so a name never appears in both
// (the runtime-XOR-dev invariant, §3).
func (m *Manifest) AddDependency(name, constraint string, dev bool) {
	if m.Dependencies == nil {
		m.Dependencies = map[string]string{}
	}
	if m.DevDependencies == nil {
		m.DevDependencies = map[string]string{}
	}
	delete(m.Dependencies, name)
	delete(m.DevDependencies, name)
	if dev {
		m.DevDependencies[name] = constraint
	} else {
		m.Dependencies[name] = constraint
	}
}

// RemoveDependency removes name from both the runtime and dev mappings.
func (m *Manifest) RemoveDependency(name string) {
	delete(m.Dependencies, name)
	delete(m.DevDependencies, name)
}

// ListDependencies returns the merged name -> constraint mapping, same as
// AllDependencies; kept as a distinct entry point for the §4.1 "list"
// operation so callers don't need to know about the merge.
func (m *Manifest) ListDependencies() map[string]string {
	return m.AllDependencies()
}
