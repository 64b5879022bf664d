package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tomcat-viz/trialviz/internal/config"
	"github.com/tomcat-viz/trialviz/internal/database"
	"github.com/tomcat-viz/trialviz/internal/influx"
	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/parser"
	"github.com/tomcat-viz/trialviz/internal/storage"
	"github.com/tomcat-viz/trialviz/internal/storage/gormdb"
	"github.com/tomcat-viz/trialviz/internal/trial"
	"github.com/tomcat-viz/trialviz/internal/util"
)

var (
	parseTimeSteps int
	parseSnapshot  string
	parseArchive   bool
)

func init() {
	parseCmd.Flags().IntVar(&parseTimeSteps, "time-steps", 0, "mission length in seconds (default from config)")
	parseCmd.Flags().StringVar(&parseSnapshot, "snapshot", "", "write a gzip JSON snapshot to this path")
	parseCmd.Flags().BoolVar(&parseArchive, "archive", false, "store the trial in the configured archive")
}

var parseCmd = &cobra.Command{
	Use:   "parse <log>",
	Short: "Reconstruct a trial from its message log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		t, stats, err := parseLog(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		duration := time.Since(start)

		printSummary(t, stats, duration)

		if parseSnapshot != "" {
			if err := t.Save(parseSnapshot); err != nil {
				return err
			}
			fmt.Println("snapshot written to", parseSnapshot)
		}

		if parseArchive {
			if err := archiveTrial(cmd, t); err != nil {
				return err
			}
			fmt.Println("trial archived")
		}

		if config.GetBool("influx.enabled") {
			reportParse(cmd, t, stats, duration)
		}
		return nil
	},
}

// parseLog runs the full reconstruction for a log file.
func parseLog(ctx context.Context, path string) (*trial.Trial, *parser.Stats, error) {
	timeSteps := parseTimeSteps
	if timeSteps <= 0 {
		timeSteps = config.GetInt("trial.timeSteps")
	}

	p, err := parser.New(logger, parser.WithTimeSteps(timeSteps))
	if err != nil {
		return nil, nil, err
	}
	return p.ParseFile(ctx, path)
}

func printSummary(t *trial.Trial, stats *parser.Stats, duration time.Duration) {
	fmt.Printf("trial %s (team %s) on map %s\n",
		t.Metadata.TrialNumber, t.Metadata.TeamNumber, t.Metadata.MapBlockFilename)
	for c := 0; c < model.NumPlayers; c++ {
		fmt.Printf("  %-6s %s (%s)\n", model.PlayerColor(c), t.Metadata.IDs[c], t.Metadata.Roles[c])
	}
	fmt.Printf("mission: %s  ticks: %d  final score: %d\n",
		util.FormatMissionClock(t.TimeSteps), stats.TicksFilled, finalScore(t))
	fmt.Printf("lines: %d (bad %d)  events: %d  unknown participants: %d\n",
		stats.Lines, stats.BadLines, stats.ProcessedMessages, stats.UnknownParticipants)
	fmt.Printf("parsed in %s\n", duration.Round(time.Millisecond))
}

func finalScore(t *trial.Trial) int {
	if t.TimeSteps == 0 {
		return 0
	}
	return t.Scores[t.TimeSteps-1]
}

// zlog builds the zerolog logger used by the archive and metrics layers.
func zlog() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// openArchive connects the configured archive backend.
func openArchive() (storage.Backend, func(), error) {
	cfg := config.GetArchiveConfig()

	var mgr *database.Manager
	connector := func(cfg config.ArchiveConfig, log zerolog.Logger) (storage.Backend, error) {
		mgr = database.NewManager(log)
		if err := mgr.Connect(cfg); err != nil {
			return nil, err
		}
		return gormdb.New(mgr.DB, log), nil
	}

	backend, err := storage.NewBackend(cfg, zlog(), connector)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = backend.Close()
		if mgr != nil {
			_ = mgr.Close()
		}
	}
	return backend, cleanup, nil
}

func archiveTrial(cmd *cobra.Command, t *trial.Trial) error {
	backend, cleanup, err := openArchive()
	if err != nil {
		return err
	}
	defer cleanup()
	return backend.ArchiveTrial(cmd.Context(), t)
}

func reportParse(cmd *cobra.Command, t *trial.Trial, stats *parser.Stats, duration time.Duration) {
	m := influx.NewManager(zlog(), "trialviz-metrics-backup.gz")
	if err := m.Connect(); err != nil {
		logger.Warn("Metrics reporting unavailable", "error", err)
		return
	}
	defer m.Close()

	if err := m.ReportParse(cmd.Context(), t, *stats, duration); err != nil {
		logger.Warn("Failed to report parse metrics", "error", err)
	}
}
