package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "List archived trials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cleanup, err := openArchive()
		if err != nil {
			return err
		}
		defer cleanup()

		list, err := backend.ListTrials(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("no archived trials")
			return nil
		}

		fmt.Printf("%-12s %-8s %6s %6s  %s\n", "TRIAL", "TEAM", "TICKS", "SCORE", "ARCHIVED")
		for _, s := range list {
			fmt.Printf("%-12s %-8s %6d %6d  %s\n",
				s.TrialNumber, s.TeamNumber, s.TimeSteps, s.FinalScore,
				s.ArchivedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}
