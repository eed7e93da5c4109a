package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crabbypm/crabby/internal/archivecache"
)

func newCacheCmd(app *appContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or manage the local archive cache",
	}
	cacheCmd.AddCommand(newCacheCleanCmd(app))
	return cacheCmd
}

// newCacheCleanCmd wires the SPEC_FULL.md supplemented feature "crabby
// cache clear" (grounded on original_source/src/cache.rs) to
// archivecache.Store.Clear.
func newCacheCleanCmd(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every cached archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := archivecache.DefaultRoot()
			if err != nil {
				return err
			}
			store, err := archivecache.New(root)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return fmt.Errorf("clear archive cache: %w", err)
			}
			fmt.Println("archive cache cleared")
			return nil
		},
	}
}
