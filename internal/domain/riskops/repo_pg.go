package riskops

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strokewatch/strokewatch/internal/platform/db"
)

type statsRepoPG struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) StatsRepository {
	return &statsRepoPG{pool: pool}
}

func (r *statsRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// RiskStatistics aggregates in one pass. Rows that have never been
// scored count toward the total but fall into none of the bands.
func (r *statsRepoPG) RiskStatistics(ctx context.Context) (*RiskStatistics, error) {
	var s RiskStatistics
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COALESCE(ROUND(AVG(risk_score)::numeric, 2), 0),
			COALESCE(MAX(risk_score), 0),
			COALESCE(MIN(risk_score), 0),
			COUNT(*) FILTER (WHERE risk_score >= 70),
			COUNT(*) FILTER (WHERE risk_score >= 30 AND risk_score < 70),
			COUNT(*) FILTER (WHERE risk_score < 30)
		FROM patient`,
	).Scan(
		&s.TotalPatients, &s.AvgRiskScore, &s.MaxRiskScore, &s.MinRiskScore,
		&s.HighRiskCount, &s.MediumRiskCount, &s.LowRiskCount,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
