package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crabbypm/crabby/internal/lockfile"
	"github.com/crabbypm/crabby/internal/manifest"
)

func newInstallCmd(app *appContext) *cobra.Command {
	var saveDev bool

	cmd := &cobra.Command{
		Use:   "install [name[@constraint]]...",
		Short: "Install the project's dependencies, or add and install new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), app, args, saveDev)
		},
	}
	cmd.Flags().BoolVar(&saveDev, "save-dev", false, "record added dependencies as devDependencies")
	return cmd
}

func runInstall(ctx context.Context, app *appContext, args []string, saveDev bool) error {
	manifestPath := filepath.Join(app.moduleRoot, manifest.ManifestFilename)
	mf, err := manifest.LoadOrDefault(manifestPath)
	if err != nil {
		return err
	}

	for _, arg := range args {
		name, constraint := parsePackageSpec(arg)
		mf.AddDependency(name, constraint, saveDev)
	}
	if len(args) > 0 {
		if err := manifest.Save(manifestPath, mf); err != nil {
			return fmt.Errorf("save manifest: %w", err)
		}
	}

	lockPath := filepath.Join(app.moduleRoot, lockfile.Filename)
	prior := lockfile.Load(lockPath, app.logger)

	lock, err := acquireInstallLock(app.moduleRoot)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	orchestrator, err := app.buildOrchestrator()
	if err != nil {
		return err
	}

	updated, installErr := orchestrator.InstallSet(ctx, mf.AllDependencies(), prior)
	if err := lockfile.Save(lockPath, updated); err != nil {
		return fmt.Errorf("save lockfile: %w", err)
	}
	if installErr != nil {
		return fmt.Errorf("install failed: %w", installErr)
	}
	return nil
}

// parsePackageSpec splits a CLI argument like "lodash", "lodash@4.17.21",
// or the scoped "@scope/pkg@^2.0.0" into (name, constraint). A scoped
// name's own leading "@" is not mistaken for a version separator.
func parsePackageSpec(arg string) (name, constraint string) {
	searchFrom := 0
	if strings.HasPrefix(arg, "@") {
		searchFrom = 1
	}
	if idx := strings.Index(arg[searchFrom:], "@"); idx >= 0 {
		at := searchFrom + idx
		return arg[:at], arg[at+1:]
	}
	return arg, ""
}
