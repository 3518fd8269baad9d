package dashboard

import (
	"context"
	"time"
)

// Repository reads the aggregates behind the dashboard. All queries are
// read-only.
type Repository interface {
	CountPatients(ctx context.Context) (int, error)
	CountHighRisk(ctx context.Context) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	RiskDistribution(ctx context.Context) (map[string]int, error)
	RecentPatients(ctx context.Context, limit int) ([]RecentPatient, error)
	MonthlyTrend(ctx context.Context, since time.Time) ([]MonthlyCount, error)
	GenderDistribution(ctx context.Context) ([]GenderCount, error)
	AverageRiskScore(ctx context.Context) (float64, error)
	AgeDistribution(ctx context.Context) ([]AgeBucket, error)
	BMICategories(ctx context.Context) ([]BMICategory, error)
	RiskFactors(ctx context.Context) (*RiskFactors, error)
}
