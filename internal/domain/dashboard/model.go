package dashboard

import (
	"time"

	"github.com/google/uuid"
)

// Stats are the headline registry numbers.
type Stats struct {
	TotalPatients    int            `json:"total_patients"`
	HighRiskPatients int            `json:"high_risk_patients"`
	TodaysPatients   int            `json:"todays_patients"`
	RiskDistribution map[string]int `json:"risk_distribution"`
}

// RecentPatient is the trimmed projection shown in the recent
// admissions panel.
type RecentPatient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	Name      string    `db:"name" json:"name"`
	Age       *float64  `db:"age" json:"age,omitempty"`
	Gender    string    `db:"gender" json:"gender"`
	RiskScore *int      `db:"risk_score" json:"risk_score,omitempty"`
	RiskLevel *string   `db:"risk_level" json:"risk_level,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MonthlyCount is one point of the registration trend, keyed YYYY-MM.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type GenderCount struct {
	Gender string `json:"gender"`
	Count  int    `json:"count"`
}

// StatsResponse is the dashboard landing payload.
type StatsResponse struct {
	Stats              Stats           `json:"stats"`
	RecentPatients     []RecentPatient `json:"recent_patients"`
	MonthlyTrend       []MonthlyCount  `json:"monthly_trend"`
	GenderDistribution []GenderCount   `json:"gender_distribution"`
}

// AgeBucket groups patients into a half-open age range with the mean
// risk score inside it.
type AgeBucket struct {
	Range   string  `json:"range"`
	Count   int     `json:"count"`
	AvgRisk float64 `json:"avg_risk"`
}

// BMICategory uses the WHO cutoffs: under 18.5 underweight, under 25
// normal, under 30 overweight, obese above.
type BMICategory struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type RiskFactors struct {
	Hypertension int `json:"hypertension"`
	HeartDisease int `json:"heart_disease"`
	Smoking      int `json:"smoking"`
}

type Analytics struct {
	AverageRiskScore float64       `json:"average_risk_score"`
	AgeDistribution  []AgeBucket   `json:"age_distribution"`
	BMICategories    []BMICategory `json:"bmi_categories"`
	RiskFactors      RiskFactors   `json:"risk_factors"`
}

type AnalyticsResponse struct {
	Analytics Analytics `json:"analytics"`
}
