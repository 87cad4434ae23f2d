package patient

import (
	"context"

	"github.com/nidipo/portal/internal/intake"
)

// The intake engine talks to storage through narrow store interfaces. These
// adapters back them with the patient repositories, so an engine driven
// server-side (imports, scripted entry) persists exactly like the portal UI.

type engineDraftStore struct {
	drafts DraftRepository
}

// NewDraftStore adapts the draft repository to the intake engine.
func NewDraftStore(drafts DraftRepository) intake.DraftStore {
	return &engineDraftStore{drafts: drafts}
}

func (s *engineDraftStore) Upsert(ctx context.Context, rec intake.DraftRecord) (int64, error) {
	d := &Draft{
		UserID:    rec.UserID,
		PatientID: rec.PatientID,
		CenterID:  rec.CenterID,
		FormData:  rec.Form,
	}
	if err := s.drafts.Upsert(ctx, d); err != nil {
		return 0, err
	}
	return d.ID, nil
}

func (s *engineDraftStore) Delete(ctx context.Context, id int64) error {
	return s.drafts.Delete(ctx, id)
}

type engineRecordStore struct {
	patients PatientRepository
	actor    Actor
}

// NewRecordStore adapts the patient repository to the intake engine. The
// actor stamps ownership onto inserted records.
func NewRecordStore(patients PatientRepository, actor Actor) intake.RecordStore {
	return &engineRecordStore{patients: patients, actor: actor}
}

func (s *engineRecordStore) Insert(ctx context.Context, sub intake.Submission) (int64, error) {
	p := &Patient{
		PatientID: sub.PatientID,
		Age:       sub.Age,
		Sex:       sub.Sex,
		CenterID:  sub.CenterID,
		UserID:    s.actor.UserID,
		FormData:  sub.Form,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *engineRecordStore) Update(ctx context.Context, id int64, sub intake.Submission) error {
	existing, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return err
	}
	existing.PatientID = sub.PatientID
	existing.Age = sub.Age
	existing.Sex = sub.Sex
	existing.CenterID = sub.CenterID
	existing.FormData = sub.Form
	return s.patients.Update(ctx, existing)
}
