// trialviz reconstructs and replays ToMCAT search-and-rescue trials
// from their message logs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomcat-viz/trialviz/internal/config"
	"github.com/tomcat-viz/trialviz/internal/logging"
	intOtel "github.com/tomcat-viz/trialviz/internal/otel"
)

var (
	configDir string

	logManager   *logging.Manager
	otelProvider *intOtel.Provider
	logger       *slog.Logger

	logFile     *os.File
	otelLogFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "trialviz",
	Short: "Trial replay tools for ToMCAT search-and-rescue missions",
	Long: `trialviz parses Minecraft search-and-rescue trial logs into a
time-indexed reconstruction and serves replays of it.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing trialviz.cfg.json")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(estimatesCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(trialsCmd)
}

// setup loads config and initializes logging and OTel for every command.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	sessionStart := time.Now()
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs directory: %w", err)
	}

	var err error
	logFile, err = os.Create(logging.LogFilePath(logsDir, "trialviz", sessionStart))
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}

	otelCfg := config.GetOTelConfig()
	providerCfg := intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	}
	if otelCfg.Enabled {
		otelLogFile, err = os.Create(logging.LogFilePath(logsDir, "trialviz.otel", sessionStart))
		if err != nil {
			return fmt.Errorf("creating otel log file: %w", err)
		}
		providerCfg.LogWriter = otelLogFile
	}
	otelProvider, err = intOtel.New(providerCfg)
	if err != nil {
		return fmt.Errorf("initializing otel: %w", err)
	}

	gelfAddr := ""
	if config.GetBool("graylog.enabled") {
		gelfAddr = config.GetString("graylog.address")
	}

	logManager = logging.NewManager()
	if err := logManager.Setup(logFile, config.GetString("logLevel"), gelfAddr, otelProvider.LoggerProvider()); err != nil {
		return err
	}
	logger = logManager.Logger()
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if logManager != nil {
		if err := logManager.Flush(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "log flush:", err)
		}
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "otel shutdown:", err)
		}
	}
	if otelLogFile != nil {
		_ = otelLogFile.Close()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
