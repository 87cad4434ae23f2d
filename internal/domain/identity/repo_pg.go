package identity

import (
	"context"
	"errors"

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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// -- Profile Repository --

type profileRepoPG struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `p.id, p.name, p.email, p.role, p.center_id, c.name, p.password_hash, p.created_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CenterID, &p.CenterName, &p.PasswordHash, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO profiles (id, name, email, role, center_id, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		p.ID, p.Name, p.Email, p.Role, p.CenterID, p.PasswordHash,
	).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *profileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `
		SELECT `+profileCols+`
		FROM profiles p LEFT JOIN centers c ON c.id = p.center_id
		WHERE p.id = $1`, id))
}

func (r *profileRepoPG) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `
		SELECT `+profileCols+`
		FROM profiles p LEFT JOIN centers c ON c.id = p.center_id
		WHERE lower(p.email) = lower($1)`, email))
}

func (r *profileRepoPG) Update(ctx context.Context, p *Profile) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET name = $2, role = $3, center_id = $4
		WHERE id = $1`,
		p.ID, p.Name, p.Role, p.CenterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE profiles SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepoPG) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+profileCols+`
		FROM profiles p LEFT JOIN centers c ON c.id = p.center_id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.CenterID, &p.CenterName, &p.PasswordHash, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, &p)
	}
	return profiles, total, rows.Err()
}

func (r *profileRepoPG) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM profiles WHERE role = $1`, role).Scan(&n)
	return n, err
}

// -- Invitation Repository --

type invitationRepoPG struct {
	pool *pgxpool.Pool
}

func NewInvitationRepo(pool *pgxpool.Pool) InvitationRepository {
	return &invitationRepoPG{pool: pool}
}

func (r *invitationRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *invitationRepoPG) Create(ctx context.Context, inv *Invitation) error {
	inv.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invitations (id, email, role, center_id, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		inv.ID, inv.Email, inv.Role, inv.CenterID, inv.Token,
	).Scan(&inv.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *invitationRepoPG) GetByToken(ctx context.Context, token uuid.UUID) (*Invitation, error) {
	var inv Invitation
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, email, role, center_id, token, created_at
		FROM invitations WHERE token = $1`, token,
	).Scan(&inv.ID, &inv.Email, &inv.Role, &inv.CenterID, &inv.Token, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *invitationRepoPG) List(ctx context.Context) ([]*Invitation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, email, role, center_id, token, created_at
		FROM invitations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []*Invitation
	for rows.Next() {
		var inv Invitation
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.CenterID, &inv.Token, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invs = append(invs, &inv)
	}
	return invs, rows.Err()
}

// -- Password Reset Repository --

type passwordResetRepoPG struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepo(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepoPG{pool: pool}
}

func (r *passwordResetRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *passwordResetRepoPG) Create(ctx context.Context, pr *PasswordReset) error {
	pr.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO password_resets (id, user_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		pr.ID, pr.UserID, pr.Token, pr.ExpiresAt,
	).Scan(&pr.CreatedAt)
}

func (r *passwordResetRepoPG) GetByToken(ctx context.Context, token uuid.UUID) (*PasswordReset, error) {
	var pr PasswordReset
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM password_resets WHERE token = $1`, token,
	).Scan(&pr.ID, &pr.UserID, &pr.Token, &pr.ExpiresAt, &pr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *passwordResetRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM password_resets WHERE id = $1`, id)
	return err
}

func (r *passwordResetRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID)
	return err
}
