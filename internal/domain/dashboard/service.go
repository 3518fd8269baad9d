package dashboard

import (
	"context"
	"time"
)

const (
	recentPatientsLimit = 5
	trendWindowDays     = 180
)

// Service assembles the dashboard payloads.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Stats builds the landing payload: headline counts, the recent
// admissions panel, the registration trend and the gender breakdown.
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	total, err := s.repo.CountPatients(ctx)
	if err != nil {
		return nil, err
	}
	high, err := s.repo.CountHighRisk(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	todays, err := s.repo.CountCreatedSince(ctx, now.Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}
	dist, err := s.repo.RiskDistribution(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentPatients(ctx, recentPatientsLimit)
	if err != nil {
		return nil, err
	}
	trend, err := s.repo.MonthlyTrend(ctx, now.AddDate(0, 0, -trendWindowDays))
	if err != nil {
		return nil, err
	}
	genders, err := s.repo.GenderDistribution(ctx)
	if err != nil {
		return nil, err
	}

	resp := &StatsResponse{
		Stats: Stats{
			TotalPatients:    total,
			HighRiskPatients: high,
			TodaysPatients:   todays,
			RiskDistribution: fillLevels(dist),
		},
		RecentPatients:     recent,
		MonthlyTrend:       trend,
		GenderDistribution: genders,
	}
	if resp.RecentPatients == nil {
		resp.RecentPatients = []RecentPatient{}
	}
	if resp.MonthlyTrend == nil {
		resp.MonthlyTrend = []MonthlyCount{}
	}
	if resp.GenderDistribution == nil {
		resp.GenderDistribution = []GenderCount{}
	}
	return resp, nil
}

// fillLevels guarantees every level key is present so the chart always
// renders four slices.
func fillLevels(dist map[string]int) map[string]int {
	filled := map[string]int{"High": 0, "Medium": 0, "Low": 0, "Unknown": 0}
	for level, n := range dist {
		filled[level] = n
	}
	return filled
}

// Analytics builds the clinical breakdown payload.
func (s *Service) Analytics(ctx context.Context) (*AnalyticsResponse, error) {
	avg, err := s.repo.AverageRiskScore(ctx)
	if err != nil {
		return nil, err
	}
	ages, err := s.repo.AgeDistribution(ctx)
	if err != nil {
		return nil, err
	}
	bmis, err := s.repo.BMICategories(ctx)
	if err != nil {
		return nil, err
	}
	factors, err := s.repo.RiskFactors(ctx)
	if err != nil {
		return nil, err
	}

	a := Analytics{
		AverageRiskScore: avg,
		AgeDistribution:  ages,
		BMICategories:    bmis,
		RiskFactors:      *factors,
	}
	if a.AgeDistribution == nil {
		a.AgeDistribution = []AgeBucket{}
	}
	if a.BMICategories == nil {
		a.BMICategories = []BMICategory{}
	}
	return &AnalyticsResponse{Analytics: a}, nil
}
