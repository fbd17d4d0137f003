package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexAll bool

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild missing session index entries",
	Long: `Add every session missing from its owner's index, in creation order.

Sessions can be missing when the index update after a session was created
failed. Existing entries are never changed, so the command is safe to rerun.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !reindexAll && ownerID == "" {
			return fmt.Errorf("either --owner or --all is required")
		}
		svc, cleanup, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var added int
		if reindexAll {
			added, err = svc.ReconcileAll(cmd.Context())
		} else {
			added, err = svc.ReconcileIndex(cmd.Context(), ownerID)
		}
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s index entries added\n", countStyle.Render(fmt.Sprint(added)))
		return nil
	},
}

func init() {
	reindexCmd.Flags().BoolVar(&reindexAll, "all", false, "Reindex every owner")
	rootCmd.AddCommand(reindexCmd)
}
