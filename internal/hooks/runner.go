// Package hooks implements the core's only consumer of the external
// script-runner interface (§6 "Script-runner interface"): invoking a
// package's declared preinstall/install/postinstall lifecycle scripts.
//
// §1 scopes script *language* semantics and general-purpose script
// execution (piping, watch mode) out of the core; what remains here is
// the narrow, specified surface — run one command string with its cwd at
// the extracted package and node_modules/.bin prepended to PATH. Process
// management (building the *exec.Cmd, logging around it) is grounded on
// turborepo's process.Child, which wraps os/exec the same way with an
// hclog.Logger; os/exec itself is unavoidably standard library since
// subprocess spawning is not a concern any registry/HTTP/parsing library
// in the pack addresses (DESIGN.md).
package hooks

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Runner executes a package manifest's lifecycle scripts.
type Runner struct {
	logger hclog.Logger
}

// New constructs a Runner.
func New(logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{logger: logger.Named("hooks")}
}

// Names of the lifecycle hooks invoked by the install orchestrator, in the
// order §4.7 specifies: preinstall before children are spawned, install
// and postinstall after (§9 open question 2 pins "before").
const (
	PreInstall  = "preinstall"
	Install     = "install"
	PostInstall = "postinstall"
)

// Run invokes hookName if pkg's scripts declare it. A missing hook is not
// an error — it's simply not invoked. A non-zero exit is fatal for that
// package (§7 "Hook failure").
func (r *Runner) Run(ctx context.Context, hookName, packageDir string, scripts map[string]string) error {
	command, ok := scripts[hookName]
	if !ok || strings.TrimSpace(command) == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = packageDir
	cmd.Env = append(os.Environ(), "PATH="+prependBinDir(packageDir))

	r.logger.Debug("running lifecycle hook", "hook", hookName, "dir", packageDir, "command", command)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("hook %s failed: %w\n%s", hookName, err, output)
	}
	return nil
}

// prependBinDir returns the current PATH with packageDir's own
// node_modules/.bin directory prepended, matching the script-runner
// interface's "cwd/node_modules/.bin prepended to the executable search
// path" contract (§6).
func prependBinDir(packageDir string) string {
	bin := filepath.Join(packageDir, "node_modules", ".bin")
	return bin + string(os.PathListSeparator) + os.Getenv("PATH")
}
