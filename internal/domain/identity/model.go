package identity

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a portal account. Non-admin users belong to exactly one center;
// admins may have no center at all.
type Profile struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	CenterID     *int64    `json:"center_id,omitempty"`
	CenterName   *string   `json:"center_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Invitation is a pending account. The invitee follows a tokenized link and
// picks a name and password; email, role, and center are fixed by the admin
// who invited them.
type Invitation struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CenterID  *int64    `json:"center_id,omitempty"`
	Token     uuid.UUID `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordReset is a single-use token emailed to a user who forgot their
// password.
type PasswordReset struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}
