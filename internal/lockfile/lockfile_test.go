package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	lf := Load(filepath.Join(t.TempDir(), Filename), hclog.NewNullLogger())
	assert.Equal(t, 0, len(lf.Packages))
}

func TestLoadCorruptFileReturnsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	assert.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	lf := Load(path, hclog.NewNullLogger())
	assert.Equal(t, 0, len(lf.Packages))
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	lf := Empty()
	lf.Set("left-pad", Entry{Version: "1.0.0", Tarball: "https://registry/left-pad-1.0.0.tgz", Hash: "abc123", Deps: map[string]string{}})

	assert.NoError(t, Save(path, lf))

	loaded := Load(path, hclog.NewNullLogger())
	entry, ok := loaded.Get("left-pad")
	assert.Equal(t, true, ok)
	assert.Equal(t, "1.0.0", entry.Version)
}

func TestCloneIsDeepCopy(t *testing.T) {
	lf := Empty()
	lf.Set("a", Entry{Version: "1.0.0", Deps: map[string]string{"b": "^1.0.0"}})

	clone := lf.Clone()
	clone.Packages["a"].Deps["b"] = "mutated"

	original, _ := lf.Get("a")
	assert.Equal(t, "^1.0.0", original.Deps["b"])
}

func TestValidateClosureDetectsDanglingReference(t *testing.T) {
	lf := Empty()
	lf.Set("a", Entry{Version: "1.0.0", Deps: map[string]string{"ghost": "^1.0.0"}})
	assert.Error(t, lf.ValidateClosure())

	lf.Set("ghost", Entry{Version: "1.0.0", Deps: map[string]string{}})
	assert.NoError(t, lf.ValidateClosure())
}
