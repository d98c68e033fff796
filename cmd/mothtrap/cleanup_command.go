package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mothtrap/internal/logging"
	"mothtrap/internal/storage"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove orphaned scratch directories left by a crash",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			result := storage.CleanOrphans(cfg.Paths.ScratchDir, maxAge, logging.NewNop())
			out := cmd.OutOrStdout()
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "Failed to remove %s: %v\n", failure.Path, failure.Error)
			}
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No orphaned scratch directories found")
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d scratch directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", time.Hour, "Only remove scratch directories older than this")
	return cmd
}
