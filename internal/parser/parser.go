// Package parser turns a raw trial message log into a fully
// reconstructed, time-indexed Trial.
//
// Parsing happens in three stages: a single scan splits ground-truth
// messages from the temporal stream, the stream is stably sorted by
// header timestamp, and a two-phase state machine replays it into
// per-second sequences.
package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tomcat-viz/trialviz/internal/trial"
)

// Stats summarizes one parse run.
type Stats struct {
	Lines               int
	BadLines            int
	WatchedMessages     int
	ProcessedMessages   int
	UnknownKinds        int
	UnknownParticipants int
	TicksFilled         int
}

// Parser reconstructs trials from raw message logs. A Parser is safe
// to reuse across logs.
type Parser struct {
	logger    *slog.Logger
	timeSteps int

	events       metric.Int64Counter
	badLines     metric.Int64Counter
	unknownParts metric.Int64Counter
}

// Option configures a Parser.
type Option func(*Parser)

// WithTimeSteps overrides the mission length in seconds.
func WithTimeSteps(n int) Option {
	return func(p *Parser) { p.timeSteps = n }
}

// New creates a Parser. Metric instruments come from the global OTel
// provider and are no-ops when none is configured.
func New(logger *slog.Logger, opts ...Option) (*Parser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{
		logger:    logger,
		timeSteps: trial.DefaultTimeSteps,
	}
	for _, opt := range opts {
		opt(p)
	}

	m := meter()

	var err error
	p.events, err = m.Int64Counter(
		"parser.events.processed",
		metric.WithDescription("Total watched messages processed, by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}
	p.badLines, err = m.Int64Counter(
		"parser.lines.bad",
		metric.WithDescription("Total log lines skipped as invalid JSON"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bad lines counter: %w", err)
	}
	p.unknownParts, err = m.Int64Counter(
		"parser.participants.unknown",
		metric.WithDescription("Total events skipped for unknown participant ids"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating unknown participants counter: %w", err)
	}

	return p, nil
}

// ParseFile reconstructs a trial from a log file on disk.
func (p *Parser) ParseFile(ctx context.Context, path string) (*trial.Trial, *Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening trial log: %w", err)
	}
	defer f.Close()
	return p.Parse(ctx, f)
}

// Parse reconstructs a trial from a newline-delimited JSON log.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*trial.Trial, *Stats, error) {
	res, err := scanLog(r, p.logger)
	if err != nil {
		return nil, nil, err
	}
	if res.badLines > 0 {
		p.badLines.Add(ctx, int64(res.badLines))
	}

	gameMap, err := res.groundTruth.buildMap()
	if err != nil {
		return nil, nil, err
	}

	t := trial.New(p.timeSteps)
	t.Map = gameMap

	if t.VictimList, err = res.groundTruth.victimList(gameMap, p.logger); err != nil {
		return nil, nil, fmt.Errorf("parsing victim list: %w", err)
	}
	if t.RubbleList, err = positionList(res.groundTruth.rubbleMsg, gameMap, "mission_blockage_list"); err != nil {
		return nil, nil, fmt.Errorf("parsing rubble list: %w", err)
	}
	if t.ThreatPlateList, err = positionList(res.groundTruth.threatMsg, gameMap, "mission_threatsign_list"); err != nil {
		return nil, nil, fmt.Errorf("parsing threat plate list: %w", err)
	}
	if t.VictimSignalPlateList, err = positionList(res.groundTruth.signalMsg, gameMap, "mission_freezeblock_list"); err != nil {
		return nil, nil, fmt.Errorf("parsing victim signal plate list: %w", err)
	}

	sortMessages(res.messages)

	stats := &Stats{
		Lines:           res.lines,
		BadLines:        res.badLines,
		WatchedMessages: len(res.messages),
	}

	rec := newReconstructor(ctx, p, t, stats)
	rec.run(res.messages)

	p.logger.Info("Trial reconstructed",
		"lines", stats.Lines,
		"badLines", stats.BadLines,
		"watched", stats.WatchedMessages,
		"processed", stats.ProcessedMessages,
		"unknownParticipants", stats.UnknownParticipants,
		"ticks", stats.TicksFilled,
		"trial", t.Metadata.TrialNumber,
		"team", t.Metadata.TeamNumber)

	return t, stats, nil
}

func (p *Parser) countEvent(ctx context.Context, kind eventKind) {
	p.events.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}
