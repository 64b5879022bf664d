package main

import (
	"context"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomcat-viz/trialviz/internal/config"
	"github.com/tomcat-viz/trialviz/internal/monitor"
	"github.com/tomcat-viz/trialviz/internal/playback"
	"github.com/tomcat-viz/trialviz/internal/scene"
	"github.com/tomcat-viz/trialviz/internal/stream"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

var streamAddr string

func init() {
	streamCmd.Flags().StringVar(&streamAddr, "addr", "", "listen address (default from config)")
}

var streamCmd = &cobra.Command{
	Use:   "stream <snapshot|log>",
	Short: "Serve trial playback over WebSocket",
	Long: `Loads a trial (a .json.gz snapshot or a raw message log) and serves
its playback on a WebSocket endpoint. The cursor auto-plays at the
configured interval; connected viewers receive one tick frame per
advance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTrial(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		view, err := scene.NewView(t, scene.NewMemCanvas(), logger)
		if err != nil {
			return err
		}

		server := stream.NewServer(t, logger)

		streamCfg := config.GetStreamConfig()
		ctrl := playback.NewController(t, view, logger,
			playback.WithInterval(streamCfg.Interval),
			playback.WithOnTick(server.Broadcast),
		)

		addr := streamAddr
		if addr == "" {
			addr = streamCfg.Addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Every log line during streaming carries the trial and cursor.
		logManager.SetContextProvider(func() []slog.Attr {
			return []slog.Attr{
				slog.String("trial", t.Metadata.TrialNumber),
				slog.Int("tick", ctrl.Tick()),
			}
		})
		defer logManager.SetContextProvider(nil)

		status := monitor.NewService(logger, server, ctrl.Tick, 30*time.Second)
		if err := status.Start(); err != nil {
			return err
		}
		defer status.Stop()

		ctrl.Play()
		defer ctrl.Stop()

		return server.ListenAndServe(ctx, addr)
	},
}

// loadTrial reads a snapshot or, for any other extension, parses the
// file as a message log.
func loadTrial(ctx context.Context, path string) (*trial.Trial, error) {
	if strings.HasSuffix(path, ".json.gz") {
		return trial.Load(path)
	}
	t, _, err := parseLog(ctx, path)
	return t, err
}
