package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strokewatch/strokewatch/internal/platform/db"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, patient_id, name, gender, age, hypertension, heart_disease,
	ever_married, work_type, residence_type, avg_glucose_level, bmi,
	smoking_status, stroke, risk_score, risk_level, risk_updated_at,
	created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (
			id, patient_id, name, gender, age, hypertension, heart_disease,
			ever_married, work_type, residence_type, avg_glucose_level, bmi,
			smoking_status, stroke, risk_score, risk_level, risk_updated_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,
			$8,$9,$10,$11,$12,
			$13,$14,$15,$16,$17
		) RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.Name, p.Gender, p.Age, p.Hypertension, p.HeartDisease,
		p.EverMarried, p.WorkType, p.ResidenceType, p.AvgGlucoseLevel, p.BMI,
		p.SmokingStatus, p.Stroke, p.RiskScore, p.RiskLevel, p.RiskUpdatedAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *patientRepoPG) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE patient_id = $1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET
			name=$2, gender=$3, age=$4, hypertension=$5, heart_disease=$6,
			ever_married=$7, work_type=$8, residence_type=$9, avg_glucose_level=$10, bmi=$11,
			smoking_status=$12, stroke=$13, risk_score=$14, risk_level=$15, risk_updated_at=$16,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Gender, p.Age, p.Hypertension, p.HeartDisease,
		p.EverMarried, p.WorkType, p.ResidenceType, p.AvgGlucoseLevel, p.BMI,
		p.SmokingStatus, p.Stroke, p.RiskScore, p.RiskLevel, p.RiskUpdatedAt,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *patientRepoPG) UpdateRisk(ctx context.Context, id uuid.UUID, score int, level string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET risk_score=$2, risk_level=$3, risk_updated_at=$4, updated_at=NOW()
		WHERE id = $1`,
		id, score, level, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List pages patients in registry-number order, which keeps the batch
// sweep's pagination stable while it walks the table.
func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY patient_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) ListAll(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY patient_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) Search(ctx context.Context, query, riskLevel string, limit, offset int) ([]*Patient, int, error) {
	var conds []string
	var args []interface{}
	if query != "" {
		args = append(args, "%"+query+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(patient_id ILIKE $%d OR name ILIKE $%d OR gender ILIKE $%d)", n, n, n))
	}
	if riskLevel != "" {
		args = append(args, riskLevel)
		conds = append(conds, fmt.Sprintf("risk_level = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`SELECT %s FROM patient%s ORDER BY patient_id LIMIT $%d OFFSET $%d`,
		patientCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, dataSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total)
	return total, err
}

// NextPatientID draws the next registry number from the database
// sequence, so concurrent admissions never collide.
func (r *patientRepoPG) NextPatientID(ctx context.Context) (string, error) {
	var n int64
	if err := r.conn(ctx).QueryRow(ctx, `SELECT nextval('patient_registry_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("PT%05d", n), nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PatientID, &p.Name, &p.Gender, &p.Age, &p.Hypertension, &p.HeartDisease,
		&p.EverMarried, &p.WorkType, &p.ResidenceType, &p.AvgGlucoseLevel, &p.BMI,
		&p.SmokingStatus, &p.Stroke, &p.RiskScore, &p.RiskLevel, &p.RiskUpdatedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.PatientID, &p.Name, &p.Gender, &p.Age, &p.Hypertension, &p.HeartDisease,
		&p.EverMarried, &p.WorkType, &p.ResidenceType, &p.AvgGlucoseLevel, &p.BMI,
		&p.SmokingStatus, &p.Stroke, &p.RiskScore, &p.RiskLevel, &p.RiskUpdatedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
