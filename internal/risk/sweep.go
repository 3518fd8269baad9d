package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by RecomputeOne when neither lookup matches.
var ErrNotFound = errors.New("record not found")

// MissingFieldsError reports which required scoring inputs a record
// lacks. Age, average glucose level, and BMI must all be present for a
// record to be scored individually.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Record is the store-level view of a patient the sweep operates on.
// Key is the human-facing registry identifier, distinct from the
// primary ID.
type Record struct {
	ID            uuid.UUID
	Key           string
	Attrs         Attributes
	RiskScore     *int
	RiskLevel     string
	RiskUpdatedAt *time.Time
}

// RecordStore abstracts the persistence layer the sweep runs over.
// Page returns records in a stable order so sequential offsets cover
// the whole set exactly once.
type RecordStore interface {
	Count(ctx context.Context) (int, error)
	Page(ctx context.Context, offset, limit int) ([]Record, error)
	ApplyScore(ctx context.Context, id uuid.UUID, score int, level Level, at time.Time) error
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)
	FindByKey(ctx context.Context, key string) (*Record, error)
}

// Outcome summarizes a completed sweep. SuccessRate is
// UpdatedCount / TotalPatients as a percentage, 0 when the store is
// empty.
type Outcome struct {
	TotalPatients int     `json:"total_patients"`
	UpdatedCount  int     `json:"updated_count"`
	SkippedCount  int     `json:"skipped_count"`
	ErrorCount    int     `json:"error_count"`
	SuccessRate   float64 `json:"success_rate"`
}

// DefaultBatchSize is the page size used when none is configured.
const DefaultBatchSize = 100

// Sweeper recomputes risk scores and levels for every record in a
// store, walking it in sequential batches and isolating per-record
// failures.
type Sweeper struct {
	store      RecordStore
	thresholds Thresholds
	batchSize  int
	logger     zerolog.Logger
}

// NewSweeper creates a Sweeper. A non-positive batchSize falls back to
// DefaultBatchSize.
func NewSweeper(store RecordStore, thresholds Thresholds, batchSize int, logger zerolog.Logger) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sweeper{store: store, thresholds: thresholds, batchSize: batchSize, logger: logger}
}

func missingFields(a Attributes) []string {
	var missing []string
	if a.Age == nil {
		missing = append(missing, "age")
	}
	if a.AvgGlucoseLevel == nil {
		missing = append(missing, "avg_glucose_level")
	}
	if a.BMI == nil {
		missing = append(missing, "bmi")
	}
	return missing
}

// Run walks the whole store and recomputes every record's score and
// level under the sweeper's thresholds. It always returns a populated
// Outcome and never an error: a record missing a required input counts
// as skipped, a record whose update fails counts as an error, and a
// store that cannot be reached at all yields a zero Outcome with a
// single error.
func (s *Sweeper) Run(ctx context.Context) Outcome {
	total, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("risk sweep aborted, store unreachable")
		return Outcome{ErrorCount: 1}
	}

	out := Outcome{TotalPatients: total}
	s.logger.Info().
		Int("total_patients", total).
		Int("batch_size", s.batchSize).
		Msg("risk sweep started")

	for offset := 0; ; offset += s.batchSize {
		page, err := s.store.Page(ctx, offset, s.batchSize)
		if err != nil {
			s.logger.Error().Err(err).Int("offset", offset).Msg("page fetch failed")
			out.ErrorCount++
			break
		}
		if len(page) == 0 {
			break
		}

		for _, rec := range page {
			if missing := missingFields(rec.Attrs); len(missing) > 0 {
				out.SkippedCount++
				continue
			}
			score := Score(rec.Attrs)
			level := Classify(score, s.thresholds)
			if err := s.store.ApplyScore(ctx, rec.ID, score, level, time.Now().UTC()); err != nil {
				s.logger.Error().Err(err).Str("patient_id", rec.Key).Msg("score update failed")
				out.ErrorCount++
				continue
			}
			out.UpdatedCount++
		}
	}

	out.SuccessRate = successRate(out.UpdatedCount, out.TotalPatients)
	s.logger.Info().
		Int("updated", out.UpdatedCount).
		Int("skipped", out.SkippedCount).
		Int("errors", out.ErrorCount).
		Float64("success_rate", out.SuccessRate).
		Msg("risk sweep finished")
	return out
}

func successRate(updated, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(updated)/float64(total)*100*100) / 100
}

// RecomputeOne rescores a single record, looked up by primary ID when
// idOrKey parses as a UUID and by registry identifier otherwise. It
// returns the freshly stamped record, ErrNotFound when no record
// matches, or a MissingFieldsError when a required scoring input is
// absent.
func (s *Sweeper) RecomputeOne(ctx context.Context, idOrKey string) (*Record, error) {
	var (
		rec *Record
		err error
	)
	if id, perr := uuid.Parse(idOrKey); perr == nil {
		rec, err = s.store.FindByID(ctx, id)
	} else {
		rec, err = s.store.FindByKey(ctx, idOrKey)
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	if missing := missingFields(rec.Attrs); len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	score := Score(rec.Attrs)
	level := Classify(score, s.thresholds)
	now := time.Now().UTC()
	if err := s.store.ApplyScore(ctx, rec.ID, score, level, now); err != nil {
		return nil, err
	}

	rec.RiskScore = &score
	rec.RiskLevel = string(level)
	rec.RiskUpdatedAt = &now
	s.logger.Info().Str("patient_id", rec.Key).Int("score", score).Str("level", string(level)).Msg("risk recomputed")
	return rec, nil
}
