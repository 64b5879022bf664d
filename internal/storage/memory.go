package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomcat-viz/trialviz/internal/trial"
)

// memoryRecord groups an archived trial with its archive time.
type memoryRecord struct {
	trial      *trial.Trial
	archivedAt time.Time
}

// MemoryBackend stores archived trials in process memory, keyed by
// trial number. Used in tests and when no durable archive is
// configured.
type MemoryBackend struct {
	trials map[string]*memoryRecord
	mu     sync.RWMutex

	// now is swappable for tests.
	now func() time.Time
}

// Compile-time interface check
var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an in-memory archive.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		trials: make(map[string]*memoryRecord),
		now:    time.Now,
	}
}

// Init initializes the backend.
func (b *MemoryBackend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *MemoryBackend) Close() error {
	return nil
}

// ArchiveTrial stores the trial, replacing any previous entry with the
// same trial number.
func (b *MemoryBackend) ArchiveTrial(_ context.Context, t *trial.Trial) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trials[t.Metadata.TrialNumber] = &memoryRecord{
		trial:      t,
		archivedAt: b.now().UTC(),
	}
	return nil
}

// ListTrials returns summaries ordered most recent first.
func (b *MemoryBackend) ListTrials(_ context.Context) ([]TrialSummary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]TrialSummary, 0, len(b.trials))
	for _, r := range b.trials {
		finalScore := 0
		if r.trial.TimeSteps > 0 {
			finalScore = r.trial.Scores[r.trial.TimeSteps-1]
		}
		out = append(out, TrialSummary{
			TrialNumber: r.trial.Metadata.TrialNumber,
			TeamNumber:  r.trial.Metadata.TeamNumber,
			TimeSteps:   r.trial.TimeSteps,
			FinalScore:  finalScore,
			ArchivedAt:  r.archivedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchivedAt.After(out[j].ArchivedAt) })
	return out, nil
}

// GetTrialMetadata returns the stored metadata for a trial number.
func (b *MemoryBackend) GetTrialMetadata(_ context.Context, trialNumber string) (*trial.Metadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.trials[trialNumber]
	if !ok {
		return nil, fmt.Errorf("trial %s not found", trialNumber)
	}
	md := r.trial.Metadata
	return &md, nil
}

// GetTrial returns the full archived trial, or nil if absent.
func (b *MemoryBackend) GetTrial(trialNumber string) *trial.Trial {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if r, ok := b.trials[trialNumber]; ok {
		return r.trial
	}
	return nil
}
