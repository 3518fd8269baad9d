package riskops

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/strokewatch/strokewatch/internal/domain/patients"
	"github.com/strokewatch/strokewatch/internal/risk"
)

// recordStore adapts the patient repository to the sweep engine's
// record contract.
type recordStore struct {
	repo patients.Repository
}

func NewRecordStore(repo patients.Repository) risk.RecordStore {
	return &recordStore{repo: repo}
}

func (s *recordStore) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *recordStore) Page(ctx context.Context, offset, limit int) ([]risk.Record, error) {
	list, _, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	records := make([]risk.Record, 0, len(list))
	for _, p := range list {
		records = append(records, toRecord(p))
	}
	return records, nil
}

func (s *recordStore) ApplyScore(ctx context.Context, id uuid.UUID, score int, level risk.Level, at time.Time) error {
	return s.repo.UpdateRisk(ctx, id, score, string(level), at)
}

func (s *recordStore) FindByID(ctx context.Context, id uuid.UUID) (*risk.Record, error) {
	return s.find(s.repo.GetByID(ctx, id))
}

func (s *recordStore) FindByKey(ctx context.Context, key string) (*risk.Record, error) {
	return s.find(s.repo.GetByPatientID(ctx, key))
}

// find translates a repository miss into the engine's nil-record
// convention.
func (s *recordStore) find(p *patients.Patient, err error) (*risk.Record, error) {
	if errors.Is(err, patients.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := toRecord(p)
	return &rec, nil
}

func toRecord(p *patients.Patient) risk.Record {
	rec := risk.Record{
		ID:            p.ID,
		Key:           p.PatientID,
		Attrs:         p.Attributes(),
		RiskScore:     p.RiskScore,
		RiskUpdatedAt: p.RiskUpdatedAt,
	}
	if p.RiskLevel != nil {
		rec.RiskLevel = *p.RiskLevel
	}
	return rec
}
