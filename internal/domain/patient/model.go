package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/nidipo/portal/internal/intake"
)

// Patient is a submitted study record. PatientID is the study serial number
// assigned at the center, not a database key; the full questionnaire lives in
// FormData.
type Patient struct {
	ID         int64      `json:"id"`
	PatientID  string     `json:"patient_id"`
	Age        int        `json:"age"`
	Sex        string     `json:"sex"`
	CenterID   int64      `json:"center_id"`
	CenterName string     `json:"center_name,omitempty"`
	UserID     uuid.UUID  `json:"user_id"`
	DateAdded  time.Time  `json:"date_added"`
	FormData   intake.Bag `json:"form_data"`
}

// Draft is a partially completed intake form. One draft exists per
// (user, patient serial, center) triple; saving again overwrites it.
type Draft struct {
	ID        int64      `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	PatientID string     `json:"patient_id"`
	CenterID  int64      `json:"center_id"`
	FormData  intake.Bag `json:"form_data"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CenterCount is one row of the enrollment breakdown on the stats endpoint.
type CenterCount struct {
	CenterID   int64  `json:"center_id"`
	CenterName string `json:"center_name"`
	Patients   int    `json:"patients"`
}

// Stats summarizes enrollment for the dashboard.
type Stats struct {
	TotalPatients int           `json:"total_patients"`
	TotalDrafts   int           `json:"total_drafts"`
	ByCenter      []CenterCount `json:"by_center,omitempty"`
}
