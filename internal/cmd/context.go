// Package cmd holds the root cobra command and verbs for crabby: install,
// why, prune, and cache clean (§6 "Caller surface": these are the
// higher-level commands built outside the core, calling install_one,
// install_set, lockfile read/save, and the graph queries).
//
// The logging setup (hclog.Logger keyed off an environment variable) and
// the overall "Helper builds shared config, each subcommand's RunE pulls
// from it" shape are grounded on turborepo's cmdutil.Helper.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/crabbypm/crabby/internal/archivecache"
	"github.com/crabbypm/crabby/internal/hooks"
	"github.com/crabbypm/crabby/internal/install"
	"github.com/crabbypm/crabby/internal/registry"
)

// _envLogLevel names the environment variable that sets verbosity,
// matching the teacher's own _envLogLevel convention.
const _envLogLevel = "CRABBY_LOG_LEVEL"

// _defaultRegistry is the --registry flag's default value.
const _defaultRegistry = "https://registry.npmjs.org"

// appContext holds configuration shared by every subcommand, built once in
// the root command's PersistentPreRunE.
type appContext struct {
	moduleRoot  string
	registryURL string
	nodeVersion string
	verbose     bool

	logger hclog.Logger
}

func newAppContext() *appContext {
	return &appContext{}
}

func (a *appContext) addFlags(cmd *cobra.Command) {
	cwd, _ := os.Getwd()
	cmd.PersistentFlags().StringVar(&a.moduleRoot, "cwd", cwd, "directory containing package.json")
	cmd.PersistentFlags().StringVar(&a.registryURL, "registry", _defaultRegistry, "package registry base URL")
	cmd.PersistentFlags().StringVar(&a.nodeVersion, "node-version", os.Getenv("CRABBY_NODE_VERSION"), "runtime version compared against a package's engines.node hint")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
}

func (a *appContext) resolve() error {
	if a.moduleRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		a.moduleRoot = cwd
	}
	abs, err := filepath.Abs(a.moduleRoot)
	if err != nil {
		return fmt.Errorf("resolve --cwd: %w", err)
	}
	a.moduleRoot = abs

	level := hclog.Info
	if a.verbose || os.Getenv(_envLogLevel) == "debug" {
		level = hclog.Debug
	}
	a.logger = hclog.New(&hclog.LoggerOptions{
		Name:  "crabby",
		Level: level,
	})
	return nil
}

// buildOrchestrator wires the core's collaborators together from resolved
// flags (§6 domain stack wiring).
func (a *appContext) buildOrchestrator() (*install.Orchestrator, error) {
	root, err := archivecache.DefaultRoot()
	if err != nil {
		return nil, fmt.Errorf("resolve archive cache root: %w", err)
	}
	cache, err := archivecache.New(root)
	if err != nil {
		return nil, err
	}

	client := registry.New(registry.Opts{
		BaseURL:   a.registryURL,
		UserAgent: "crabby/1 (+https://github.com/crabbypm/crabby)",
	}, a.logger)

	return &install.Orchestrator{
		Registry:    client,
		Cache:       cache,
		Hooks:       hooks.New(a.logger),
		Logger:      a.logger,
		ModuleRoot:  a.moduleRoot,
		NodeVersion: a.nodeVersion,
	}, nil
}
