package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"mothtrap/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running daemon's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status daemon.Status
			if err := ctx.fetchJSON("/api/status", &status); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit status as JSON")
	return cmd
}

func printStatus(out io.Writer, status daemon.Status) {
	rows := [][]string{
		{"Device", status.DeviceName},
		{"Running", yesNo(status.Running)},
		{"Policy", status.Policy},
		{"Schedule", status.ScheduleMode},
		{"Armed", yesNo(status.Armed)},
		{"Capture active", yesNo(status.CaptureActive)},
		{"Windows since boot", strconv.FormatUint(status.Cycles, 10)},
		{"Camera present", yesNo(status.CameraPresent)},
		{"Microphone present", yesNo(status.MicPresent)},
		{"Storage", status.StorageDir},
		{"Storage ok", yesNo(status.StorageOK)},
	}
	if last := status.LastWindow; last != nil {
		rows = append(rows,
			[]string{"Last window", fmt.Sprintf("#%d %s", last.Cycle, last.State)},
			[]string{"Last frames", strconv.Itoa(last.Frames)},
		)
		if last.VideoPath != "" {
			rows = append(rows, []string{"Last video", last.VideoPath})
		}
		if last.Degraded {
			rows = append(rows, []string{"Last window degraded", "yes"})
		}
	}

	if stdoutIsTerminal() {
		fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
	}
}
