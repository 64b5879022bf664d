// Package storage defines the trial archive interface. Backends persist
// fully reconstructed trials so replays and cross-trial queries do not
// require re-parsing the message log.
package storage

import (
	"context"
	"time"

	"github.com/tomcat-viz/trialviz/internal/trial"
)

// TrialSummary is one row of the archive listing.
type TrialSummary struct {
	TrialNumber string
	TeamNumber  string
	TimeSteps   int
	FinalScore  int
	ArchivedAt  time.Time
}

// Backend is the interface all archive implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// ArchiveTrial persists a reconstructed trial. Archiving the same
	// trial number again replaces the previous record.
	ArchiveTrial(ctx context.Context, t *trial.Trial) error

	// ListTrials returns summaries of all archived trials, most recent
	// first.
	ListTrials(ctx context.Context) ([]TrialSummary, error)

	// GetTrialMetadata returns the stored metadata for a trial number.
	GetTrialMetadata(ctx context.Context, trialNumber string) (*trial.Metadata, error)
}
