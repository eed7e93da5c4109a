package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkCreatesBinDirAndShims(t *testing.T) {
	nodeModules := t.TempDir()
	packageDir := filepath.Join(nodeModules, "cli-tool")
	assert.NoError(t, os.MkdirAll(packageDir, 0o755))

	executables := map[string]string{"cli-tool": "bin/run.js"}
	assert.NoError(t, Link(nodeModules, packageDir, executables))

	entries, err := os.ReadDir(filepath.Join(nodeModules, BinDir))
	assert.NoError(t, err)
	assert.Equal(t, true, len(entries) > 0)
}

func TestLinkEmptyExecutablesStillCreatesBinDir(t *testing.T) {
	nodeModules := t.TempDir()
	assert.NoError(t, Link(nodeModules, filepath.Join(nodeModules, "x"), map[string]string{}))

	_, err := os.Stat(filepath.Join(nodeModules, BinDir))
	assert.NoError(t, err)
}
