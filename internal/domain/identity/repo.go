package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrBadToken   = errors.New("invalid or expired token")
	ErrBadLogin   = errors.New("invalid email or password")
	ErrAdminTaken = errors.New("an administrator is already registered")
)

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByToken(ctx context.Context, token uuid.UUID) (*Invitation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Invitation, error)
}

type PasswordResetRepository interface {
	Create(ctx context.Context, pr *PasswordReset) error
	GetByToken(ctx context.Context, token uuid.UUID) (*PasswordReset, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
