package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nidipo/portal/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `p.id, p.patient_id, p.age, p.sex, p.center_id, c.name, p.user_id, p.date_added, p.form_data`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.PatientID, &p.Age, &p.Sex, &p.CenterID, &p.CenterName, &p.UserID, &p.DateAdded, &p.FormData); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (patient_id, age, sex, center_id, user_id, form_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, date_added`,
		p.PatientID, p.Age, p.Sex, p.CenterID, p.UserID, p.FormData,
	).Scan(&p.ID, &p.DateAdded)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `
		SELECT `+patientCols+`
		FROM patients p JOIN centers c ON c.id = p.center_id
		WHERE p.id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET patient_id = $2, age = $3, sex = $4, center_id = $5, form_data = $6
		WHERE id = $1`,
		p.ID, p.PatientID, p.Age, p.Sex, p.CenterID, p.FormData)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// filterClause builds the WHERE clause shared by List and ListAll. Args are
// appended starting at $1.
func filterClause(f ListFilter) (string, []interface{}) {
	where := "TRUE"
	var args []interface{}
	if f.CenterID != nil {
		args = append(args, *f.CenterID)
		where += fmt.Sprintf(" AND p.center_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND p.patient_id ILIKE $%d", len(args))
	}
	return where, args
}

func (r *patientRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	where, args := filterClause(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT `+patientCols+`
		FROM patients p JOIN centers c ON c.id = p.center_id
		WHERE `+where+`
		ORDER BY p.date_added DESC, p.id DESC
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients, err := collectPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (r *patientRepoPG) ListAll(ctx context.Context, f ListFilter) ([]*Patient, error) {
	where, args := filterClause(f)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+`
		FROM patients p JOIN centers c ON c.id = p.center_id
		WHERE `+where+`
		ORDER BY p.date_added DESC, p.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	var patients []*Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.PatientID, &p.Age, &p.Sex, &p.CenterID, &p.CenterName, &p.UserID, &p.DateAdded, &p.FormData); err != nil {
			return nil, err
		}
		patients = append(patients, &p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) CountByCenter(ctx context.Context) ([]CenterCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT c.id, c.name, COUNT(p.id)
		FROM centers c LEFT JOIN patients p ON p.center_id = c.id
		GROUP BY c.id, c.name
		ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CenterCount
	for rows.Next() {
		var cc CenterCount
		if err := rows.Scan(&cc.CenterID, &cc.CenterName, &cc.Patients); err != nil {
			return nil, err
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

// -- Draft Repository --

type draftRepoPG struct {
	pool *pgxpool.Pool
}

func NewDraftRepo(pool *pgxpool.Pool) DraftRepository {
	return &draftRepoPG{pool: pool}
}

func (r *draftRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Upsert writes the draft, replacing any previous save for the same
// (user, patient serial, center) triple.
func (r *draftRepoPG) Upsert(ctx context.Context, d *Draft) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO drafts (user_id, patient_id, center_id, form_data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, patient_id, center_id)
		DO UPDATE SET form_data = EXCLUDED.form_data, updated_at = now()
		RETURNING id, updated_at`,
		d.UserID, d.PatientID, d.CenterID, d.FormData,
	).Scan(&d.ID, &d.UpdatedAt)
}

func (r *draftRepoPG) GetByID(ctx context.Context, id int64) (*Draft, error) {
	var d Draft
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, patient_id, center_id, form_data, updated_at
		FROM drafts WHERE id = $1`, id,
	).Scan(&d.ID, &d.UserID, &d.PatientID, &d.CenterID, &d.FormData, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *draftRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Draft, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, patient_id, center_id, form_data, updated_at
		FROM drafts WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		var d Draft
		if err := rows.Scan(&d.ID, &d.UserID, &d.PatientID, &d.CenterID, &d.FormData, &d.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, &d)
	}
	return drafts, rows.Err()
}

func (r *draftRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftRepoPG) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM drafts WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
