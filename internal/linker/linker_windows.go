//go:build windows

package linker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeShim writes a .cmd launcher (§4.9 "Platform").
func writeShim(binDir, exeName, relativeTarget string) error {
	winTarget := strings.ReplaceAll(relativeTarget, "/", "\\")
	script := fmt.Sprintf("@ECHO off\r\nnode \"%%~dp0\\%s\" %%*\r\n", winTarget)
	path := filepath.Join(binDir, exeName+".cmd")
	return os.WriteFile(path, []byte(script), 0o644)
}
