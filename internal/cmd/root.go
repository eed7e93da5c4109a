package cmd

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the root command, returning a process exit code.
func Execute(version string, args []string) int {
	app := newAppContext()
	root := &cobra.Command{
		Use:     "crabby",
		Short:   "A small, fast package manager for the node ecosystem",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.resolve()
		},
	}
	app.addFlags(root)

	root.AddCommand(newInstallCmd(app))
	root.AddCommand(newWhyCmd(app))
	root.AddCommand(newPruneCmd(app))
	root.AddCommand(newCacheCmd(app))

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
