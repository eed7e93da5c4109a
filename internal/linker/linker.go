// Package linker creates per-platform launcher shims in the shared binary
// directory, node_modules/.bin, for a package's declared executables
// (§4.9). The platform split (a POSIX shell script vs. a Windows .cmd
// file) mirrors the teacher's own GOOS-suffixed-file convention, e.g.
// turbopath's absolute_system_path_darwin.go/_notdarwin.go and
// tarpatch's tar_unix.go/tar_windows.go.
package linker

import (
	"fmt"
	"path/filepath"

	"github.com/crabbypm/crabby/internal/crabbypath"
)

// BinDir is the reserved module-tree sub-directory executable shims live
// in (§3 "Module tree").
const BinDir = ".bin"

// Link creates a launcher at nodeModulesDir/.bin/<exeName> for each
// executable, pointing at scriptPath relative to packageDir (§4.9). Paths
// written into the launcher are relative so the module tree stays
// position-independent.
func Link(nodeModulesDir, packageDir string, executables map[string]string) error {
	binDir := crabbypath.New(nodeModulesDir).Join(BinDir)
	if err := binDir.MkdirAll(); err != nil {
		return fmt.Errorf("create bin dir: %w", err)
	}

	for exeName, scriptPath := range executables {
		rel, err := filepath.Rel(binDir.String(), filepath.Join(packageDir, scriptPath))
		if err != nil {
			return fmt.Errorf("relativize shim target for %s: %w", exeName, err)
		}
		if err := writeShim(binDir.String(), exeName, filepath.ToSlash(rel)); err != nil {
			return fmt.Errorf("link executable %s: %w", exeName, err)
		}
	}
	return nil
}
