package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nidipo/portal/internal/intake"
	"github.com/nidipo/portal/internal/platform/auth"
)

var (
	// ErrForbidden marks access to another center's data or another user's
	// draft.
	ErrForbidden = errors.New("forbidden")
	// ErrNoCenter is returned when a non-admin account has no center
	// assignment, which should not happen outside of misconfiguration.
	ErrNoCenter = errors.New("account has no center assigned")
)

// Actor identifies the caller for center scoping and ownership checks.
type Actor struct {
	UserID   uuid.UUID
	Role     string
	CenterID *int64
}

func (a Actor) isAdmin() bool { return a.Role == auth.RoleAdmin }

type Service struct {
	patients PatientRepository
	drafts   DraftRepository
	sections []intake.Section
}

func NewService(patients PatientRepository, drafts DraftRepository, sections []intake.Section) *Service {
	return &Service{patients: patients, drafts: drafts, sections: sections}
}

func (s *Service) Sections() []intake.Section {
	return s.sections
}

// resolveCenter decides which center a submission lands in. Admins may pick
// any center through the form's center field; everyone else is pinned to
// their own.
func (s *Service) resolveCenter(actor Actor, form intake.Bag) (int64, error) {
	if actor.isAdmin() {
		if v, ok := form.Get(intake.CenterField); ok && !v.Blank() {
			if id, err := v.Int(); err == nil && id > 0 {
				return int64(id), nil
			}
		}
	}
	if actor.CenterID == nil {
		return 0, ErrNoCenter
	}
	return *actor.CenterID, nil
}

// buildPatient validates the form and lifts the core fields out of the bag.
func (s *Service) buildPatient(actor Actor, form intake.Bag) (*Patient, error) {
	if failures := intake.Validate(s.sections, form); len(failures) > 0 {
		return nil, &intake.ValidationError{Failures: failures}
	}
	centerID, err := s.resolveCenter(actor, form)
	if err != nil {
		return nil, err
	}
	age, _ := form[intake.AgeField].Int()
	return &Patient{
		PatientID: strings.TrimSpace(form.GetText(intake.SerialNumberField)),
		Age:       age,
		Sex:       form.GetText(intake.SexField),
		CenterID:  centerID,
		UserID:    actor.UserID,
		FormData:  form,
	}, nil
}

// Submit validates a completed form and stores it as a new patient record.
func (s *Service) Submit(ctx context.Context, actor Actor, form intake.Bag) (*Patient, error) {
	p, err := s.buildPatient(actor, form)
	if err != nil {
		return nil, err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	// A leftover draft for this patient is now stale.
	s.dropDraftFor(ctx, actor.UserID, p.PatientID, p.CenterID)
	return p, nil
}

// Resubmit replaces an existing record with a corrected form.
func (s *Service) Resubmit(ctx context.Context, actor Actor, id int64, form intake.Bag) (*Patient, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	p, err := s.buildPatient(actor, form)
	if err != nil {
		return nil, err
	}
	p.ID = existing.ID
	p.UserID = existing.UserID
	p.DateAdded = existing.DateAdded
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) dropDraftFor(ctx context.Context, userID uuid.UUID, patientID string, centerID int64) {
	drafts, err := s.drafts.ListByUser(ctx, userID)
	if err != nil {
		return
	}
	for _, d := range drafts {
		if d.PatientID == patientID && d.CenterID == centerID {
			_ = s.drafts.Delete(ctx, d.ID)
		}
	}
}

func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && (actor.CenterID == nil || *actor.CenterID != p.CenterID) {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	return s.patients.Delete(ctx, id)
}

// scopeFilter pins non-admin queries to the actor's own center.
func (s *Service) scopeFilter(actor Actor, f ListFilter) (ListFilter, error) {
	if actor.isAdmin() {
		return f, nil
	}
	if actor.CenterID == nil {
		return f, ErrNoCenter
	}
	f.CenterID = actor.CenterID
	return f, nil
}

func (s *Service) List(ctx context.Context, actor Actor, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	f, err := s.scopeFilter(actor, f)
	if err != nil {
		return nil, 0, err
	}
	return s.patients.List(ctx, f, limit, offset)
}

// ListAll returns every matching record, for export.
func (s *Service) ListAll(ctx context.Context, actor Actor, f ListFilter) ([]*Patient, error) {
	f, err := s.scopeFilter(actor, f)
	if err != nil {
		return nil, err
	}
	return s.patients.ListAll(ctx, f)
}

// -- Drafts --

// SaveDraft upserts the caller's draft. A patient serial number is required
// before anything is written, so unkeyed work never reaches the database.
func (s *Service) SaveDraft(ctx context.Context, actor Actor, form intake.Bag) (*Draft, error) {
	serial := strings.TrimSpace(form.GetText(intake.SerialNumberField))
	if serial == "" {
		return nil, intake.ErrSerialNumberRequired
	}
	centerID, err := s.resolveCenter(actor, form)
	if err != nil {
		return nil, err
	}
	d := &Draft{
		UserID:    actor.UserID,
		PatientID: serial,
		CenterID:  centerID,
		FormData:  form,
	}
	if err := s.drafts.Upsert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDraft loads a draft; only its owner may read it.
func (s *Service) GetDraft(ctx context.Context, actor Actor, id int64) (*Draft, error) {
	d, err := s.drafts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return d, nil
}

func (s *Service) ListDrafts(ctx context.Context, actor Actor) ([]*Draft, error) {
	return s.drafts.ListByUser(ctx, actor.UserID)
}

func (s *Service) DeleteDraft(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.GetDraft(ctx, actor, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}

// -- Stats --

func (s *Service) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	f, err := s.scopeFilter(actor, ListFilter{})
	if err != nil {
		return nil, err
	}
	_, total, err := s.patients.List(ctx, f, 1, 0)
	if err != nil {
		return nil, err
	}
	draftCount, err := s.drafts.CountByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalPatients: total, TotalDrafts: draftCount}
	if actor.isAdmin() {
		byCenter, err := s.patients.CountByCenter(ctx)
		if err != nil {
			return nil, err
		}
		st.ByCenter = byCenter
	}
	return st, nil
}
