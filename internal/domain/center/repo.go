package center

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("center not found")

type Repository interface {
	Create(ctx context.Context, c *Center) error
	GetByID(ctx context.Context, id int64) (*Center, error)
	Update(ctx context.Context, c *Center) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*Center, error)
}
