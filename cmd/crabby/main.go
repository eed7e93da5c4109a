// Command crabby is the CLI front door: a thin wrapper that parses
// arguments and calls into the core (install_one, install_set, lockfile
// read/save, graph queries) via internal/cmd (§6 "Caller surface").
package main

import (
	"os"

	"github.com/crabbypm/crabby/internal/cmd"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(cmd.Execute(version, os.Args[1:]))
}
