// Package resolve selects a concrete version for a name+constraint pair
// against a registry metadata document (§4.3). Version parsing and range
// satisfaction are delegated to github.com/Masterminds/semver, the same
// library turborepo's own go.mod carries for its workspace packageManager
// version checks.
package resolve

import (
	"strings"

	"github.com/Masterminds/semver"
	"github.com/hashicorp/go-hclog"

	"github.com/crabbypm/crabby/internal/registry"
)

// Resolved is the outcome of resolving a name+constraint pair.
type Resolved struct {
	Version string
	Tarball string
	Hash    string
	Deps    map[string]string
}

// Resolve implements §4.3's algorithm.
func Resolve(name, constraint string, md *registry.Metadata, logger hclog.Logger) (Resolved, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	if len(md.Versions) == 0 {
		return Resolved{}, registry.ErrNoVersions
	}

	if constraint == "" || constraint == "latest" {
		rec, err := md.Latest()
		if err != nil {
			return Resolved{}, err
		}
		return fromRecord(rec), nil
	}

	// Supplemented feature: a constraint that names a dist-tag other than
	// "latest" (e.g. "next", "beta") resolves directly against dist-tags,
	// matching the original source's tag lookup before falling into range
	// parsing (SPEC_FULL.md "dist-tag constraints").
	if version, ok := md.DistTags[constraint]; ok {
		if rec, ok := md.Versions[version]; ok {
			return fromRecord(rec), nil
		}
	}

	parsed, err := parseConstraint(constraint, logger, name)

	candidates := make([]*semver.Version, 0, len(md.Versions))
	byVersion := make(map[string]registry.VersionRecord, len(md.Versions))
	for raw, rec := range md.Versions {
		v, verr := semver.NewVersion(raw)
		if verr != nil {
			continue // discard unparseable version keys (§4.3 step 3)
		}
		byVersion[v.String()] = rec
		candidates = append(candidates, v)
	}

	var best *semver.Version
	for _, v := range candidates {
		if parsed != nil && err == nil {
			if !parsed.Check(v) {
				continue
			}
		}
		if best == nil || v.Compare(best) > 0 {
			best = v
		}
	}

	if best == nil {
		logger.Warn("no version satisfies constraint, falling back to latest", "name", name, "constraint", constraint)
		rec, err := md.Latest()
		if err != nil {
			return Resolved{}, err
		}
		return fromRecord(rec), nil
	}

	return fromRecord(byVersion[best.String()]), nil
}

// parseConstraint parses constraint as a semver range, retrying as the
// exact-equality form "=<constraint>" on failure, and finally falling back
// to "match any" with a warning (§4.3 step 2).
func parseConstraint(constraint string, logger hclog.Logger, name string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(constraint)
	if err == nil {
		return c, nil
	}

	exact := "=" + strings.TrimPrefix(constraint, "=")
	c, err2 := semver.NewConstraint(exact)
	if err2 == nil {
		return c, nil
	}

	logger.Warn("unparsable constraint, matching any version", "name", name, "constraint", constraint)
	return nil, err
}

func fromRecord(rec registry.VersionRecord) Resolved {
	return Resolved{
		Version: rec.Version,
		Tarball: rec.Tarball,
		Hash:    rec.Hash,
		Deps:    rec.Dependencies,
	}
}

// SplitAlias recognizes the ecosystem's "npm:<name>@<range>" dependency
// alias form (SPEC_FULL.md supplemented feature 1, grounded on
// other_examples' go-npm manager.parseAliasVersion): the dependency is
// fetched and resolved under registryName, but should be recorded in the
// module tree and lockfile under aliasName (the key the manifest declared
// it with). aliasName is the name the caller already has; SplitAlias only
// needs to report the real registry name and range.
func SplitAlias(constraint string) (registryName, rangeConstraint string, isAlias bool) {
	if !strings.HasPrefix(constraint, "npm:") {
		return "", constraint, false
	}
	spec := strings.TrimPrefix(constraint, "npm:")
	lastAt := strings.LastIndex(spec, "@")
	if lastAt <= 0 {
		return spec, "latest", true
	}
	return spec[:lastAt], spec[lastAt+1:], true
}
