package center

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nidipo/portal/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const centerCols = `id, name, location, created_at`

func scanCenter(row pgx.Row) (*Center, error) {
	var c Center
	if err := row.Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Center) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO centers (name, location) VALUES ($1, $2)
		RETURNING id, created_at`,
		c.Name, c.Location,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Center, error) {
	return scanCenter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+centerCols+` FROM centers WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Center) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE centers SET name = $2, location = $3 WHERE id = $1`,
		c.ID, c.Name, c.Location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM centers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*Center, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+centerCols+` FROM centers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var centers []*Center
	for rows.Next() {
		var c Center
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt); err != nil {
			return nil, err
		}
		centers = append(centers, &c)
	}
	return centers, rows.Err()
}
