package patients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strokewatch/strokewatch/internal/risk"
)

// maxFieldLen caps free-text input before storage.
const maxFieldLen = 500

var fieldSanitizer = strings.NewReplacer("<", "", ">", "", "&", "", `"`, "", "'", "")

func sanitizeString(s string) string {
	s = fieldSanitizer.Replace(s)
	if len(s) > maxFieldLen {
		s = s[:maxFieldLen]
	}
	return s
}

func sanitizeStringPtr(s *string) {
	if s != nil {
		*s = sanitizeString(*s)
	}
}

var validSmokingStatuses = map[string]bool{
	"never smoked":    true,
	"formerly smoked": true,
	"smokes":          true,
	"Unknown":         true,
}

type Service struct {
	repo  Repository
	admit risk.Thresholds
	bulk  risk.Thresholds
}

// NewService wires the patient workflows. Admission thresholds classify
// records created or updated through the API, bulk thresholds apply to
// bulk imports.
func NewService(repo Repository, admit, bulk risk.Thresholds) *Service {
	return &Service{repo: repo, admit: admit, bulk: bulk}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Gender == "" {
		return fmt.Errorf("gender is required")
	}
	if p.Age == nil {
		return fmt.Errorf("age is required")
	}
	if p.AvgGlucoseLevel == nil {
		return fmt.Errorf("avg_glucose_level is required")
	}
	if p.BMI == nil {
		return fmt.Errorf("bmi is required")
	}
	if p.SmokingStatus == "" {
		return fmt.Errorf("smoking_status is required")
	}

	sanitizePatient(p)
	if err := validateClinical(p.Age, p.AvgGlucoseLevel, p.BMI, &p.SmokingStatus); err != nil {
		return err
	}

	patientID, err := s.repo.NextPatientID(ctx)
	if err != nil {
		return fmt.Errorf("assigning patient id: %w", err)
	}
	p.PatientID = patientID

	// The stroke outcome starts at 0 and is recorded later.
	p.Stroke = 0
	scoreAt(p, s.admit)
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, identifier string) (*Patient, error) {
	return s.findByIdentifier(ctx, identifier)
}

func (s *Service) UpdatePatient(ctx context.Context, identifier string, upd *PatientUpdate) (*Patient, error) {
	p, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	sanitizeUpdate(upd)
	if err := validateClinical(upd.Age, upd.AvgGlucoseLevel, upd.BMI, upd.SmokingStatus); err != nil {
		return nil, err
	}

	upd.Apply(p)
	if upd.TouchesRisk() {
		scoreAt(p, s.admit)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, identifier string) error {
	p, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, p.ID)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListAllPatients(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) SearchPatients(ctx context.Context, query, riskLevel string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, query, riskLevel, limit, offset)
}

// BulkImport loads rows in order and reports per-row failures instead
// of aborting the batch. Rows are scored with the import thresholds and
// skip the admission-time sanitize and range checks.
func (s *Service) BulkImport(ctx context.Context, inputs []PatientInput) (*BulkResult, error) {
	res := &BulkResult{}
	for i := range inputs {
		in := &inputs[i]
		if missing := in.missingRequired(); len(missing) > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("Patient %d: missing required fields: %s", i, strings.Join(missing, ", ")))
			continue
		}

		p := in.Patient()
		patientID, err := s.repo.NextPatientID(ctx)
		if err != nil {
			return nil, fmt.Errorf("assigning patient id: %w", err)
		}
		p.PatientID = patientID
		scoreAt(p, s.bulk)

		if err := s.repo.Create(ctx, p); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Patient %d: %v", i, err))
			continue
		}
		res.CreatedCount++
	}
	return res, nil
}

// findByIdentifier resolves a path identifier that may be either the
// row UUID or the PT-prefixed registry number.
func (s *Service) findByIdentifier(ctx context.Context, identifier string) (*Patient, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByPatientID(ctx, identifier)
}

func scoreAt(p *Patient, t risk.Thresholds) {
	score := risk.Score(p.Attributes())
	level := string(risk.Classify(score, t))
	now := time.Now().UTC()
	p.RiskScore = &score
	p.RiskLevel = &level
	p.RiskUpdatedAt = &now
}

func sanitizePatient(p *Patient) {
	p.Name = sanitizeString(p.Name)
	p.Gender = sanitizeString(p.Gender)
	p.SmokingStatus = sanitizeString(p.SmokingStatus)
	sanitizeStringPtr(p.EverMarried)
	sanitizeStringPtr(p.WorkType)
	sanitizeStringPtr(p.ResidenceType)
}

func sanitizeUpdate(u *PatientUpdate) {
	sanitizeStringPtr(u.Name)
	sanitizeStringPtr(u.Gender)
	sanitizeStringPtr(u.SmokingStatus)
	sanitizeStringPtr(u.EverMarried)
	sanitizeStringPtr(u.WorkType)
	sanitizeStringPtr(u.ResidenceType)
}

// validateClinical checks plausibility ranges on whichever clinical
// fields are present; nil fields are left to the caller's required
// checks.
func validateClinical(age, glucose, bmi *float64, smoking *string) error {
	if age != nil && (*age < 0 || *age > 120) {
		return fmt.Errorf("age must be between 0 and 120")
	}
	if glucose != nil && (*glucose < 50 || *glucose > 500) {
		return fmt.Errorf("avg_glucose_level must be between 50 and 500")
	}
	if bmi != nil && (*bmi < 10 || *bmi > 80) {
		return fmt.Errorf("bmi must be between 10 and 80")
	}
	if smoking != nil && !validSmokingStatuses[*smoking] {
		return fmt.Errorf("smoking_status must be one of: never smoked, formerly smoked, smokes, Unknown")
	}
	return nil
}
