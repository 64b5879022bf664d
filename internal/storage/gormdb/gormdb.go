// Package gormdb implements the archive Backend on a gorm handle. It
// works against both Postgres and SQLite; the caller supplies the
// connection via internal/database.
package gormdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomcat-viz/trialviz/internal/model"
	"github.com/tomcat-viz/trialviz/internal/storage"
	"github.com/tomcat-viz/trialviz/internal/trial"
)

// TrialRecord is one archived trial.
type TrialRecord struct {
	ID          uint   `gorm:"primarykey"`
	TrialNumber string `gorm:"uniqueIndex;size:32"`
	TeamNumber  string `gorm:"index;size:32"`
	MapName     string `gorm:"size:64"`
	TimeSteps   int
	FinalScore  int
	Metadata    datatypes.JSON
	ArchivedAt  time.Time

	Ticks []TickRecord `gorm:"constraint:OnDelete:CASCADE"`
}

// TickRecord is the per-tick payload of an archived trial. Score and
// blackout are columns so cross-trial queries do not need to unpack
// the JSON payload.
type TickRecord struct {
	ID            uint `gorm:"primarykey"`
	TrialRecordID uint `gorm:"index"`
	Tick          int  `gorm:"index"`
	Score         int
	Blackout      bool
	Payload       datatypes.JSON
}

// tickPayload is the JSON stored per tick.
type tickPayload struct {
	Positions [model.NumPlayers][]model.Position   `json:"positions"`
	Yaws      [model.NumPlayers]float64            `json:"yaws"`
	Actions   [model.NumPlayers]model.Action       `json:"actions"`
	Equipped  [model.NumPlayers]model.EquippedItem `json:"equipped"`

	PlacedMarkers  []model.Marker `json:"placedMarkers,omitempty"`
	RemovedMarkers []model.Marker `json:"removedMarkers,omitempty"`
	SavedVictims   []model.Victim `json:"savedVictims,omitempty"`
}

// Backend archives trials through gorm.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

// New creates a gorm archive backend on the given handle.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// Init migrates the archive schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&TrialRecord{}, &TickRecord{}); err != nil {
		return fmt.Errorf("failed to migrate archive schema: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (b *Backend) Close() error {
	return nil
}

// ArchiveTrial stores the trial, replacing any previous record with the
// same trial number.
func (b *Backend) ArchiveTrial(ctx context.Context, t *trial.Trial) error {
	md, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode trial metadata: %w", err)
	}

	finalScore := 0
	if t.TimeSteps > 0 {
		finalScore = t.Scores[t.TimeSteps-1]
	}

	rec := TrialRecord{
		TrialNumber: t.Metadata.TrialNumber,
		TeamNumber:  t.Metadata.TeamNumber,
		MapName:     t.Metadata.MapBlockFilename,
		TimeSteps:   t.TimeSteps,
		FinalScore:  finalScore,
		Metadata:    datatypes.JSON(md),
		ArchivedAt:  time.Now().UTC(),
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev TrialRecord
		err := tx.Where("trial_number = ?", rec.TrialNumber).First(&prev).Error
		switch {
		case err == nil:
			if err := tx.Where("trial_record_id = ?", prev.ID).Delete(&TickRecord{}).Error; err != nil {
				return fmt.Errorf("failed to clear previous ticks: %w", err)
			}
			if err := tx.Delete(&prev).Error; err != nil {
				return fmt.Errorf("failed to clear previous trial: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create trial record: %w", err)
		}

		ticks := make([]TickRecord, 0, t.TimeSteps)
		for i := 0; i < t.TimeSteps; i++ {
			payload, err := json.Marshal(tickAt(t, i))
			if err != nil {
				return fmt.Errorf("failed to encode tick %d: %w", i, err)
			}
			ticks = append(ticks, TickRecord{
				TrialRecordID: rec.ID,
				Tick:          i,
				Score:         t.Scores[i],
				Blackout:      t.ActiveBlackout[i],
				Payload:       datatypes.JSON(payload),
			})
		}
		if len(ticks) > 0 {
			if err := tx.CreateInBatches(ticks, 500).Error; err != nil {
				return fmt.Errorf("failed to insert tick records: %w", err)
			}
		}

		b.log.Info().
			Str("trial", rec.TrialNumber).
			Int("ticks", len(ticks)).
			Msg("Archived trial")
		return nil
	})
}

func tickAt(t *trial.Trial, i int) tickPayload {
	p := tickPayload{
		PlacedMarkers:  t.PlacedMarkers[i].Sorted(),
		RemovedMarkers: t.RemovedMarkers[i].Sorted(),
		SavedVictims:   t.SavedVictims[i].Sorted(),
	}
	for c := 0; c < model.NumPlayers; c++ {
		p.Positions[c] = t.Positions[c][i]
		p.Yaws[c] = t.Yaws[c][i]
		p.Actions[c] = t.Actions[c][i]
		p.Equipped[c] = t.EquippedItems[c][i]
	}
	return p
}

// ListTrials returns archived trial summaries, most recent first.
func (b *Backend) ListTrials(ctx context.Context) ([]storage.TrialSummary, error) {
	var recs []TrialRecord
	err := b.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "archived_at"}, Desc: true}).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trials: %w", err)
	}

	out := make([]storage.TrialSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, storage.TrialSummary{
			TrialNumber: r.TrialNumber,
			TeamNumber:  r.TeamNumber,
			TimeSteps:   r.TimeSteps,
			FinalScore:  r.FinalScore,
			ArchivedAt:  r.ArchivedAt,
		})
	}
	return out, nil
}

// GetTrialMetadata returns the stored metadata for a trial number.
func (b *Backend) GetTrialMetadata(ctx context.Context, trialNumber string) (*trial.Metadata, error) {
	var rec TrialRecord
	err := b.db.WithContext(ctx).Where("trial_number = ?", trialNumber).First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("trial %s not found: %w", trialNumber, err)
	}

	var md trial.Metadata
	if err := json.Unmarshal(rec.Metadata, &md); err != nil {
		return nil, fmt.Errorf("failed to decode trial metadata: %w", err)
	}
	return &md, nil
}
