package registry

import "errors"

// ErrNoLatestTag is returned when a metadata document has no "latest"
// dist-tag, or the dist-tag points at a version with no record — a hard
// failure per §4.3.
var ErrNoLatestTag = errors.New("registry metadata missing dist-tags.latest")

// ErrNoVersions is returned when a metadata document's versions mapping is
// empty — a hard failure per §4.3.
var ErrNoVersions = errors.New("registry metadata has no versions")
