package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// ListFilter narrows patient queries. A nil CenterID means all centers,
// which only admins may request.
type ListFilter struct {
	CenterID *int64
	Search   string
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)
	ListAll(ctx context.Context, f ListFilter) ([]*Patient, error)
	CountByCenter(ctx context.Context) ([]CenterCount, error)
}

type DraftRepository interface {
	Upsert(ctx context.Context, d *Draft) error
	GetByID(ctx context.Context, id int64) (*Draft, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Draft, error)
	Delete(ctx context.Context, id int64) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}
