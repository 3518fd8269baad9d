package riskops

import "context"

// RiskStatistics summarizes the scored population. The high, medium
// and low counts use the fixed reporting bands (70 and 30), not the
// workflow classification thresholds, so dashboards stay comparable
// across threshold changes.
type RiskStatistics struct {
	TotalPatients   int     `json:"total_patients"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	MaxRiskScore    int     `json:"max_risk_score"`
	MinRiskScore    int     `json:"min_risk_score"`
	HighRiskCount   int     `json:"high_risk_count"`
	MediumRiskCount int     `json:"medium_risk_count"`
	LowRiskCount    int     `json:"low_risk_count"`
}

type StatsRepository interface {
	RiskStatistics(ctx context.Context) (*RiskStatistics, error)
}
