package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crabbypm/crabby/internal/graph"
	"github.com/crabbypm/crabby/internal/lockfile"
	"github.com/crabbypm/crabby/internal/manifest"
)

func newWhyCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "why <name>",
		Short: "Explain why a package is present in the dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhy(app, args[0])
		},
	}
}

func runWhy(app *appContext, target string) error {
	mf, err := manifest.LoadOrDefault(filepath.Join(app.moduleRoot, manifest.ManifestFilename))
	if err != nil {
		return err
	}
	lf := lockfile.Load(filepath.Join(app.moduleRoot, lockfile.Filename), app.logger)

	// Every direct dependency of the project manifest is a root, labelled
	// by whether it came from Dependencies or DevDependencies. Workspace
	// packages' own dependencies are not used as roots.
	roots := make(map[string]bool, len(mf.Dependencies)+len(mf.DevDependencies))
	for name := range mf.Dependencies {
		roots[name] = false
	}
	for name := range mf.DevDependencies {
		roots[name] = true
	}

	paths := graph.Why(lf, roots, target)
	if len(paths) == 0 {
		fmt.Printf("%s is not in the dependency graph\n", target)
		return nil
	}
	for _, p := range paths {
		kind := "dependencies"
		if p.Dev {
			kind = "devDependencies"
		}
		fmt.Printf("%s (%s) -> %s\n", p.Root, kind, strings.Join(p.Chain, " -> "))
	}
	return nil
}
