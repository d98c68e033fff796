package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"mothtrap/internal/counters"
)

func newCountersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var resetName string

	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Show lifetime operation counters",
		Long:  "Reads the counters database directly, so it works whether or not the daemon is running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := counters.Open(cfg)
			if err != nil {
				return fmt.Errorf("open counters store: %w", err)
			}
			defer store.Close()

			if resetName != "" {
				if err := store.Reset(context.Background(), resetName); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Counter %q reset\n", resetName)
				return nil
			}

			values, err := store.Snapshot(context.Background())
			if err != nil {
				return err
			}
			for _, name := range []string{
				counters.CounterBoots,
				counters.CounterDetections,
				counters.CounterCommitted,
				counters.CounterDiscarded,
				counters.CounterFailures,
			} {
				if _, ok := values[name]; !ok {
					values[name] = 0
				}
			}

			if jsonOutput {
				return writeJSON(cmd, values)
			}

			names := make([]string, 0, len(values))
			for name := range values {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, strconv.FormatInt(values[name], 10)})
			}

			out := cmd.OutOrStdout()
			if stdoutIsTerminal() {
				fmt.Fprintln(out, renderTable([]string{"Counter", "Value"}, rows, 1))
				return nil
			}
			for _, row := range rows {
				fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit counters as JSON")
	cmd.Flags().StringVar(&resetName, "reset", "", "Zero the named counter instead of listing")
	return cmd
}
