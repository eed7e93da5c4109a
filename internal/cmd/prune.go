package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crabbypm/crabby/internal/graph"
	"github.com/crabbypm/crabby/internal/lockfile"
	"github.com/crabbypm/crabby/internal/manifest"
)

func newPruneCmd(app *appContext) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove module-tree entries unreachable from the project's dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(app, apply)
		},
	}
	cmd.Flags().BoolVar(&apply, "force", false, "actually remove orphaned directories instead of listing them")
	return cmd
}

func runPrune(app *appContext, apply bool) error {
	mf, err := manifest.LoadOrDefault(filepath.Join(app.moduleRoot, manifest.ManifestFilename))
	if err != nil {
		return err
	}
	lf := lockfile.Load(filepath.Join(app.moduleRoot, lockfile.Filename), app.logger)

	roots := make([]string, 0, len(mf.Dependencies)+len(mf.DevDependencies))
	for name := range mf.AllDependencies() {
		roots = append(roots, name)
	}

	reached, err := graph.Reachable(lf, roots)
	if err != nil {
		return fmt.Errorf("compute reachable set: %w", err)
	}

	nodeModules := filepath.Join(app.moduleRoot, "node_modules")
	installed, err := listInstalledNames(nodeModules)
	if err != nil {
		return err
	}

	orphans := graph.Orphans(installed, reached)
	for _, name := range orphans {
		if !apply {
			fmt.Println(name)
			continue
		}
		dir := filepath.Join(nodeModules, filepath.FromSlash(name))
		app.logger.Info("removing orphaned package", "name", name, "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// listInstalledNames walks node_modules, descending into scope directories
// (those starting with "@") and reporting their packages as "@scope/pkg"
// (§4.8 "Scope directories are descended into").
func listInstalledNames(nodeModules string) ([]string, error) {
	entries, err := os.ReadDir(nodeModules)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read node_modules: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), "@") {
			scopeDir := filepath.Join(nodeModules, entry.Name())
			children, err := os.ReadDir(scopeDir)
			if err != nil {
				continue
			}
			for _, child := range children {
				if child.IsDir() {
					names = append(names, entry.Name()+"/"+child.Name())
				}
			}
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
