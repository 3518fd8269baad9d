package riskops

import (
	"context"
	"errors"
	"sync"

	"github.com/strokewatch/strokewatch/internal/risk"
)

// ErrSweepInProgress is returned when a batch recompute is requested
// while another one is still walking the registry.
var ErrSweepInProgress = errors.New("risk sweep already running")

// SweepRecorder receives the record counts of every finished sweep.
// Implementations must be safe for concurrent use.
type SweepRecorder interface {
	RecordRun(updated, skipped, errors int)
}

type Service struct {
	sweeper  *risk.Sweeper
	stats    StatsRepository
	recorder SweepRecorder

	mu      sync.Mutex
	running bool
}

// NewService creates a Service. recorder may be nil when sweep metrics
// are not collected.
func NewService(sweeper *risk.Sweeper, stats StatsRepository, recorder SweepRecorder) *Service {
	return &Service{sweeper: sweeper, stats: stats, recorder: recorder}
}

// RunSweep recomputes every patient's score. Only one sweep runs at a
// time; concurrent requests get ErrSweepInProgress instead of queueing.
func (s *Service) RunSweep(ctx context.Context) (risk.Outcome, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return risk.Outcome{}, ErrSweepInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	out := s.sweeper.Run(ctx)
	if s.recorder != nil {
		s.recorder.RecordRun(out.UpdatedCount, out.SkippedCount, out.ErrorCount)
	}
	return out, nil
}

func (s *Service) RecomputePatient(ctx context.Context, idOrKey string) (*risk.Record, error) {
	return s.sweeper.RecomputeOne(ctx, idOrKey)
}

func (s *Service) Statistics(ctx context.Context) (*RiskStatistics, error) {
	return s.stats.RiskStatistics(ctx)
}
