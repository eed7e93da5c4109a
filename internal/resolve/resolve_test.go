package resolve

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/crabbypm/crabby/internal/registry"
)

func metadata() *registry.Metadata {
	return &registry.Metadata{
		Name:     "left-pad",
		DistTags: map[string]string{"latest": "1.3.0", "next": "2.0.0-beta.1"},
		Versions: map[string]registry.VersionRecord{
			"1.0.0": {Version: "1.0.0", Tarball: "t/1.0.0", Hash: "h1"},
			"1.3.0": {Version: "1.3.0", Tarball: "t/1.3.0", Hash: "h2"},
			"2.0.0-beta.1": {Version: "2.0.0-beta.1", Tarball: "t/2.0.0-beta.1", Hash: "h3"},
		},
	}
}

func TestResolveEmptyConstraintUsesLatestTag(t *testing.T) {
	r, err := Resolve("left-pad", "", metadata(), hclog.NewNullLogger())
	assert.NoError(t, err)
	assert.Equal(t, "1.3.0", r.Version)
}

func TestResolveExplicitLatest(t *testing.T) {
	r, err := Resolve("left-pad", "latest", metadata(), hclog.NewNullLogger())
	assert.NoError(t, err)
	assert.Equal(t, "1.3.0", r.Version)
}

func TestResolveDistTag(t *testing.T) {
	r, err := Resolve("left-pad", "next", metadata(), hclog.NewNullLogger())
	assert.NoError(t, err)
	assert.Equal(t, "2.0.0-beta.1", r.Version)
}

func TestResolveRangePicksGreatestMatch(t *testing.T) {
	r, err := Resolve("left-pad", "^1.0.0", metadata(), hclog.NewNullLogger())
	assert.NoError(t, err)
	assert.Equal(t, "1.3.0", r.Version)
}

func TestResolveExactVersion(t *testing.T) {
	r, err := Resolve("left-pad", "1.0.0", metadata(), hclog.NewNullLogger())
	assert.NoError(t, err)
	assert.Equal(t, "1.0.0", r.Version)
}

func TestResolveNoMatchFallsBackToLatest(t *testing.T) {
	r, err := Resolve("left-pad", "^9.0.0", metadata(), hclog.NewNullLogger())
	assert.NoError(t, err)
	assert.Equal(t, "1.3.0", r.Version)
}

func TestResolveEmptyVersionsIsHardFailure(t *testing.T) {
	_, err := Resolve("left-pad", "", &registry.Metadata{Name: "left-pad"}, hclog.NewNullLogger())
	assert.Equal(t, registry.ErrNoVersions, err)
}

func TestSplitAliasParsesNpmAliasForm(t *testing.T) {
	registryName, rangeConstraint, isAlias := SplitAlias("npm:left-pad@^1.0.0")
	assert.Equal(t, true, isAlias)
	assert.Equal(t, "left-pad", registryName)
	assert.Equal(t, "^1.0.0", rangeConstraint)
}

func TestSplitAliasNoPrefixIsNotAlias(t *testing.T) {
	_, _, isAlias := SplitAlias("^1.0.0")
	assert.Equal(t, false, isAlias)
}

func TestSplitAliasScopedAliasTarget(t *testing.T) {
	registryName, rangeConstraint, isAlias := SplitAlias("npm:@scope/real-name@^2.0.0")
	assert.Equal(t, true, isAlias)
	assert.Equal(t, "@scope/real-name", registryName)
	assert.Equal(t, "^2.0.0", rangeConstraint)
}
