package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomcat-viz/trialviz/internal/geo"
	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/trial"
	"github.com/tomcat-viz/trialviz/internal/util"
)

var infoCmd = &cobra.Command{
	Use:   "info <snapshot>",
	Short: "Print metadata of a saved trial snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := trial.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("trial %s (team %s) on map %s\n",
			t.Metadata.TrialNumber, t.Metadata.TeamNumber, t.Metadata.MapBlockFilename)
		for c := 0; c < model.NumPlayers; c++ {
			fmt.Printf("  %-6s %s (%s)  traveled %.0f blocks\n",
				model.PlayerColor(c), t.Metadata.IDs[c], t.Metadata.Roles[c],
				geo.PathLength(playerPath(t, model.PlayerColor(c))))
		}
		fmt.Printf("mission: %s  ticks: %d  final score: %d\n",
			util.FormatMissionClock(t.TimeSteps), t.TimeSteps, finalScore(t))
		fmt.Printf("ground truth: %d victims, %d rubble, %d threat plates\n",
			len(t.VictimList), len(t.RubbleList), len(t.ThreatPlateList))

		saved := 0
		for i := 0; i < t.TimeSteps; i++ {
			saved += len(t.SavedVictims[i])
		}
		fmt.Printf("victims rescued: %d\n", saved)
		return nil
	},
}

// playerPath concatenates a player's movement lists across all ticks.
func playerPath(t *trial.Trial, p model.PlayerColor) []model.Position {
	var path []model.Position
	for i := 0; i < t.TimeSteps; i++ {
		path = append(path, t.Positions[p][i]...)
	}
	return path
}
