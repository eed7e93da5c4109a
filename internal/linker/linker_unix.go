//go:build !windows

package linker

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeShim writes a POSIX shell script launcher with the executable bit
// set (octal 755, §4.9 "Platform").
func writeShim(binDir, exeName, relativeTarget string) error {
	script := fmt.Sprintf("#!/bin/sh\nbasedir=$(dirname \"$0\")\nexec node \"$basedir/%s\" \"$@\"\n", relativeTarget)
	path := filepath.Join(binDir, exeName)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return err
	}
	return os.Chmod(path, 0o755)
}
