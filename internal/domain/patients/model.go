package patients

import (
	"time"

	"github.com/google/uuid"

	"github.com/strokewatch/strokewatch/internal/risk"
)

// Patient maps to the patient table. Clinical fields that the risk
// engine consumes are pointers so that an absent value is distinguishable
// from zero.
type Patient struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       string     `db:"patient_id" json:"patient_id"`
	Name            string     `db:"name" json:"name"`
	Gender          string     `db:"gender" json:"gender"`
	Age             *float64   `db:"age" json:"age,omitempty"`
	Hypertension    *int       `db:"hypertension" json:"hypertension,omitempty"`
	HeartDisease    *int       `db:"heart_disease" json:"heart_disease,omitempty"`
	EverMarried     *string    `db:"ever_married" json:"ever_married,omitempty"`
	WorkType        *string    `db:"work_type" json:"work_type,omitempty"`
	ResidenceType   *string    `db:"residence_type" json:"residence_type,omitempty"`
	AvgGlucoseLevel *float64   `db:"avg_glucose_level" json:"avg_glucose_level,omitempty"`
	BMI             *float64   `db:"bmi" json:"bmi,omitempty"`
	SmokingStatus   string     `db:"smoking_status" json:"smoking_status"`
	Stroke          int        `db:"stroke" json:"stroke"`
	RiskScore       *int       `db:"risk_score" json:"risk_score,omitempty"`
	RiskLevel       *string    `db:"risk_level" json:"risk_level,omitempty"`
	RiskUpdatedAt   *time.Time `db:"risk_updated_at" json:"risk_updated_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Attributes maps the clinical fields into the risk engine's input.
func (p *Patient) Attributes() risk.Attributes {
	return risk.Attributes{
		Age:             p.Age,
		Hypertension:    p.Hypertension,
		HeartDisease:    p.HeartDisease,
		AvgGlucoseLevel: p.AvgGlucoseLevel,
		BMI:             p.BMI,
		SmokingStatus:   p.SmokingStatus,
		Gender:          p.Gender,
	}
}

// PatientUpdate is a partial update payload. Every field is a pointer:
// nil means "leave unchanged".
type PatientUpdate struct {
	Name            *string  `json:"name"`
	Gender          *string  `json:"gender"`
	Age             *float64 `json:"age"`
	Hypertension    *int     `json:"hypertension"`
	HeartDisease    *int     `json:"heart_disease"`
	EverMarried     *string  `json:"ever_married"`
	WorkType        *string  `json:"work_type"`
	ResidenceType   *string  `json:"residence_type"`
	AvgGlucoseLevel *float64 `json:"avg_glucose_level"`
	BMI             *float64 `json:"bmi"`
	SmokingStatus   *string  `json:"smoking_status"`
	Stroke          *int     `json:"stroke"`
}

// Apply merges the provided fields onto p.
func (u *PatientUpdate) Apply(p *Patient) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Age != nil {
		p.Age = u.Age
	}
	if u.Hypertension != nil {
		p.Hypertension = u.Hypertension
	}
	if u.HeartDisease != nil {
		p.HeartDisease = u.HeartDisease
	}
	if u.EverMarried != nil {
		p.EverMarried = u.EverMarried
	}
	if u.WorkType != nil {
		p.WorkType = u.WorkType
	}
	if u.ResidenceType != nil {
		p.ResidenceType = u.ResidenceType
	}
	if u.AvgGlucoseLevel != nil {
		p.AvgGlucoseLevel = u.AvgGlucoseLevel
	}
	if u.BMI != nil {
		p.BMI = u.BMI
	}
	if u.SmokingStatus != nil {
		p.SmokingStatus = *u.SmokingStatus
	}
	if u.Stroke != nil {
		p.Stroke = *u.Stroke
	}
}

// TouchesRisk reports whether the update carries any field that feeds
// the risk score, so callers know to recompute it.
func (u *PatientUpdate) TouchesRisk() bool {
	return u.Age != nil || u.Hypertension != nil || u.HeartDisease != nil ||
		u.AvgGlucoseLevel != nil || u.BMI != nil || u.SmokingStatus != nil ||
		u.Gender != nil
}

// PatientInput is a bulk import row. Required fields are pointers so
// missing ones can be reported by index.
type PatientInput struct {
	Name            string   `json:"name"`
	Gender          *string  `json:"gender"`
	Age             *float64 `json:"age"`
	Hypertension    *int     `json:"hypertension"`
	HeartDisease    *int     `json:"heart_disease"`
	EverMarried     *string  `json:"ever_married"`
	WorkType        *string  `json:"work_type"`
	ResidenceType   *string  `json:"residence_type"`
	AvgGlucoseLevel *float64 `json:"avg_glucose_level"`
	BMI             *float64 `json:"bmi"`
	SmokingStatus   *string  `json:"smoking_status"`
	Stroke          *int     `json:"stroke"`
}

// missingRequired returns the absent import requirements in a fixed
// reporting order.
func (in *PatientInput) missingRequired() []string {
	var missing []string
	if in.Gender == nil {
		missing = append(missing, "gender")
	}
	if in.Age == nil {
		missing = append(missing, "age")
	}
	if in.AvgGlucoseLevel == nil {
		missing = append(missing, "avg_glucose_level")
	}
	if in.BMI == nil {
		missing = append(missing, "bmi")
	}
	return missing
}

// Patient converts the import row into a registry record. Identifiers
// and risk fields are left for the caller to fill.
func (in *PatientInput) Patient() *Patient {
	p := &Patient{
		Name:            in.Name,
		Age:             in.Age,
		Hypertension:    in.Hypertension,
		HeartDisease:    in.HeartDisease,
		EverMarried:     in.EverMarried,
		WorkType:        in.WorkType,
		ResidenceType:   in.ResidenceType,
		AvgGlucoseLevel: in.AvgGlucoseLevel,
		BMI:             in.BMI,
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.SmokingStatus != nil {
		p.SmokingStatus = *in.SmokingStatus
	}
	if in.Stroke != nil {
		p.Stroke = *in.Stroke
	}
	return p
}

// BulkResult reports the outcome of a bulk import.
type BulkResult struct {
	CreatedCount int      `json:"created_count"`
	Errors       []string `json:"errors"`
}
