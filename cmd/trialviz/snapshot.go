package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tomcat-viz/trialviz/internal/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <log> [out]",
	Short: "Reconstruct a trial and save it as a snapshot",
	Long: `Parses the message log and writes the reconstruction as a gzip JSON
snapshot. Without an output path the snapshot lands in the configured
output directory, named after the trial number.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, _, err := parseLog(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := ""
		if len(args) == 2 {
			out = args[1]
		} else {
			name := t.Metadata.TrialNumber
			if name == "" {
				name = "trial"
			}
			out = filepath.Join(config.GetSnapshotConfig().OutputDir, name+".json.gz")
		}

		if err := t.Save(out); err != nil {
			return err
		}
		fmt.Println("snapshot written to", out)
		return nil
	},
}
