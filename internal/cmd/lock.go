package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// acquireInstallLock ensures only one install_set invocation runs against
// moduleRoot at a time (SPEC_FULL.md domain stack: "prevents two CLI
// invocations from racing the same node_modules"), grounded on the
// teacher's daemon.tryAcquirePidfileLock, which guards turbod's own pid
// file the same way with the same library.
func acquireInstallLock(moduleRoot string) (lockfile.Lockfile, error) {
	path := filepath.Join(moduleRoot, ".crabby.lock.pid")
	lock, err := lockfile.New(path)
	if err != nil {
		return "", fmt.Errorf("construct install lock: %w", err)
	}
	if err := lock.TryLock(); err != nil {
		return "", fmt.Errorf("another crabby install is already running in %s: %w", moduleRoot, err)
	}
	return lock, nil
}
