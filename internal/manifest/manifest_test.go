package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnmarshalPreservesUnknownKeys(t *testing.T) {
	data := []byte(`{
		"name": "left-pad",
		"version": "1.0.0",
		"dependencies": {"a": "^1.0.0"},
		"somethingWeird": {"nested": true}
	}`)

	m, err := Unmarshal(data)
	assert.NoError(t, err)
	assert.Equal(t, "left-pad", m.Name)
	assert.Equal(t, "^1.0.0", m.Dependencies["a"])
	assert.Equal(t, map[string]interface{}{"nested": true}, m.RawJSON["somethingWeird"])
}

func TestMarshalRoundTripsUnknownKeys(t *testing.T) {
	data := []byte(`{"name": "x", "somethingWeird": "keepme"}`)
	m, err := Unmarshal(data)
	assert.NoError(t, err)

	m.AddDependency("y", "^2.0.0", false)

	out, err := Marshal(m)
	assert.NoError(t, err)

	reparsed, err := Unmarshal(out)
	assert.NoError(t, err)
	assert.Equal(t, "keepme", reparsed.RawJSON["somethingWeird"])
	assert.Equal(t, "^2.0.0", reparsed.Dependencies["y"])
}

func TestWorkspacesAcceptsBareArrayAndPackagesForm(t *testing.T) {
	bare, err := Unmarshal([]byte(`{"workspaces": ["packages/*"]}`))
	assert.NoError(t, err)
	assert.Equal(t, Workspaces{"packages/*"}, bare.Workspaces)

	nested, err := Unmarshal([]byte(`{"workspaces": {"packages": ["packages/*", "apps/*"]}}`))
	assert.NoError(t, err)
	assert.Equal(t, Workspaces{"packages/*", "apps/*"}, nested.Workspaces)
}

func TestEmptyIsDependencyFree(t *testing.T) {
	m := Empty("broken-package")
	assert.Equal(t, 0, len(m.AllDependencies()))
	assert.Equal(t, 0, len(m.Executables()))
}

func TestExecutablesAcceptsStringAndMapForms(t *testing.T) {
	bare, err := Unmarshal([]byte(`{"name": "cli-tool", "bin": "./bin/run.js"}`))
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"cli-tool": "./bin/run.js"}, bare.Executables())

	scoped, err := Unmarshal([]byte(`{"name": "@scope/cli-tool", "bin": "./bin/run.js"}`))
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"cli-tool": "./bin/run.js"}, scoped.Executables())

	mapped, err := Unmarshal([]byte(`{"name": "x", "bin": {"a": "./a.js", "b": "./b.js"}}`))
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "./a.js", "b": "./b.js"}, mapped.Executables())
}

func TestAddDependencyIsRuntimeXorDev(t *testing.T) {
	m := Empty("p")
	m.AddDependency("lodash", "^1.0.0", false)
	m.AddDependency("lodash", "^2.0.0", true)

	_, inRuntime := m.Dependencies["lodash"]
	assert.Equal(t, false, inRuntime)
	assert.Equal(t, "^2.0.0", m.DevDependencies["lodash"])
}

func TestUnmarshalStripsBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"name": "x"}`)...)
	m, err := Unmarshal(withBOM)
	assert.NoError(t, err)
	assert.Equal(t, "x", m.Name)
}
