package center

import "time"

// Center is a participating research site. Patients, drafts, and non-admin
// users are all scoped to exactly one center.
type Center struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
