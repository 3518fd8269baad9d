package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strokewatch/strokewatch/internal/platform/db"
)

type dashboardRepoPG struct {
	pool *pgxpool.Pool
}

// NewDashboardRepo creates a PostgreSQL-backed dashboard repository.
func NewDashboardRepo(pool *pgxpool.Pool) Repository {
	return &dashboardRepoPG{pool: pool}
}

func (r *dashboardRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *dashboardRepoPG) CountPatients(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, err
}

func (r *dashboardRepoPG) CountHighRisk(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE risk_score >= 70`).Scan(&n)
	return n, err
}

func (r *dashboardRepoPG) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE created_at >= $1`, since).Scan(&n)
	return n, err
}

// RiskDistribution groups by stored level. Unscored rows come back
// under the Unknown key.
func (r *dashboardRepoPG) RiskDistribution(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT COALESCE(risk_level, 'Unknown'), COUNT(*)
		FROM patient
		GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		dist[level] = count
	}
	return dist, rows.Err()
}

func (r *dashboardRepoPG) RecentPatients(ctx context.Context, limit int) ([]RecentPatient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, age, gender, risk_score, risk_level, created_at
		FROM patient
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recent []RecentPatient
	for rows.Next() {
		var p RecentPatient
		if err := rows.Scan(&p.ID, &p.PatientID, &p.Name, &p.Age, &p.Gender,
			&p.RiskScore, &p.RiskLevel, &p.CreatedAt); err != nil {
			return nil, err
		}
		recent = append(recent, p)
	}
	return recent, rows.Err()
}

func (r *dashboardRepoPG) MonthlyTrend(ctx context.Context, since time.Time) ([]MonthlyCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, COUNT(*)
		FROM patient
		WHERE created_at >= $1
		GROUP BY 1
		ORDER BY 1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []MonthlyCount
	for rows.Next() {
		var m MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, err
		}
		trend = append(trend, m)
	}
	return trend, rows.Err()
}

func (r *dashboardRepoPG) GenderDistribution(ctx context.Context) ([]GenderCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT gender, COUNT(*)
		FROM patient
		GROUP BY gender
		ORDER BY gender`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dist []GenderCount
	for rows.Next() {
		var g GenderCount
		if err := rows.Scan(&g.Gender, &g.Count); err != nil {
			return nil, err
		}
		dist = append(dist, g)
	}
	return dist, rows.Err()
}

func (r *dashboardRepoPG) AverageRiskScore(ctx context.Context) (float64, error) {
	var avg float64
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(ROUND(AVG(risk_score)::numeric, 2), 0) FROM patient`).Scan(&avg)
	return avg, err
}

// AgeDistribution buckets by decade-ish ranges. Rows with no recorded
// age, or an age of 100 and over, land in the other bucket, which sorts
// last.
func (r *dashboardRepoPG) AgeDistribution(ctx context.Context) ([]AgeBucket, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT CASE
				WHEN age < 18 THEN '0-18'
				WHEN age < 30 THEN '18-30'
				WHEN age < 40 THEN '30-40'
				WHEN age < 50 THEN '40-50'
				WHEN age < 60 THEN '50-60'
				WHEN age < 70 THEN '60-70'
				WHEN age < 100 THEN '70-100'
				ELSE 'other'
			END AS age_range,
			COUNT(*),
			COALESCE(ROUND(AVG(risk_score)::numeric, 2), 0)
		FROM patient
		GROUP BY 1
		ORDER BY MIN(age) NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []AgeBucket
	for rows.Next() {
		var b AgeBucket
		if err := rows.Scan(&b.Range, &b.Count, &b.AvgRisk); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (r *dashboardRepoPG) BMICategories(ctx context.Context) ([]BMICategory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT CASE
				WHEN bmi < 18.5 THEN 'underweight'
				WHEN bmi < 25 THEN 'normal'
				WHEN bmi < 30 THEN 'overweight'
				WHEN bmi < 100 THEN 'obese'
				ELSE 'other'
			END AS category,
			COUNT(*)
		FROM patient
		GROUP BY 1
		ORDER BY MIN(bmi) NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []BMICategory
	for rows.Next() {
		var c BMICategory
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *dashboardRepoPG) RiskFactors(ctx context.Context) (*RiskFactors, error) {
	var f RiskFactors
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE hypertension = 1),
			COUNT(*) FILTER (WHERE heart_disease = 1),
			COUNT(*) FILTER (WHERE smoking_status = 'smokes')
		FROM patient`).Scan(&f.Hypertension, &f.HeartDisease, &f.Smoking)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
