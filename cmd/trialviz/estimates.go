package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomcat-viz/trialviz/internal/estimates"
	"github.com/tomcat-viz/trialviz/internal/model"
)

var estimatesCmd = &cobra.Command{
	Use:   "estimates <file>",
	Short: "Summarize an agent estimate file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		est, err := estimates.Load(args[0])
		if err != nil {
			return err
		}

		if len(est.TeamSeries) > 0 {
			fmt.Println("team series:")
			for _, s := range est.TeamSeries {
				printSeries(s)
			}
		}
		for c := 0; c < model.NumPlayers; c++ {
			if len(est.PlayerSeries[c]) == 0 {
				continue
			}
			fmt.Printf("%s series:\n", model.PlayerColor(c))
			for _, s := range est.PlayerSeries[c] {
				printSeries(s)
			}
		}
		return nil
	},
}

func printSeries(s estimates.TimeSeries) {
	if s.Cardinality() > 1 {
		fmt.Printf("  %-30s %d categories, %d points\n", s.Name, s.Cardinality(), s.Size())
		return
	}
	fmt.Printf("  %-30s %d points\n", s.Name, s.Size())
}
