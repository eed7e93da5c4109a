package install

import (
	"path/filepath"

	"github.com/crabbypm/crabby/internal/manifest"
)

// manifestPath returns the path to the manifest an extraction leaves
// behind inside a package directory.
func manifestPath(packageDir string) string {
	return filepath.Join(packageDir, manifest.ManifestFilename)
}
