package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// The patient-identifier field every intake form must carry.
const SerialNumberField = "serialNumber"

// Core demographic field ids extracted on final submission.
const (
	AgeField    = "age"
	SexField    = "sex"
	CenterField = "centerId"
)

// EngineState tracks the entry gate of a freshly created engine.
type EngineState int

const (
	// StateAwaitingRestoreDecision blocks mutating operations until the
	// caller resolves the pending local-backup restore offer.
	StateAwaitingRestoreDecision EngineState = iota
	StateReady
)

var (
	ErrAwaitingRestoreDecision = errors.New("a restore decision is pending")
	ErrNoRestorePending        = errors.New("no restore decision is pending")
	ErrSerialNumberRequired    = errors.New("enter the serial number before saving a draft")
	ErrBusy                    = errors.New("a save or submission is already in flight")
)

// DraftRecord is the server-persisted partial submission the engine saves.
type DraftRecord struct {
	UserID    uuid.UUID
	PatientID string
	CenterID  int64
	Form      Bag
	UpdatedAt time.Time
}

// Submission carries the validated core fields plus the full bag.
type Submission struct {
	PatientID string
	Age       int
	Sex       string
	CenterID  int64
	Form      Bag
}

// DraftStore is the remote draft persistence port. Upsert is keyed on
// (user, patient identifier, center): at most one row per triple.
type DraftStore interface {
	Upsert(ctx context.Context, d DraftRecord) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// RecordStore is the remote final-submission persistence port.
type RecordStore interface {
	Insert(ctx context.Context, s Submission) (int64, error)
	Update(ctx context.Context, id int64, s Submission) error
}

// BackupMaxAge is how recent a snapshot must be for the engine to offer a
// restore on entry.
const BackupMaxAge = 24 * time.Hour

// Config wires an engine to its configuration and ports.
type Config struct {
	Sections  []Section
	UserID    uuid.UUID
	CenterID  int64
	IsAdmin   bool
	Snapshots SnapshotStore
	Drafts    DraftStore
	Records   RecordStore

	// Now is substitutable for tests; defaults to time.Now.
	Now func() time.Time
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Engine walks an ordered sequence of sections, holds the mutable value bag,
// and drives the draft/backup/submission lifecycle. It is single-threaded:
// each operation runs to completion before the next is invoked.
type Engine struct {
	cfg      Config
	bag      Bag
	step     int
	state    EngineState
	draftID  int64
	recordID int64

	saving     bool
	submitting bool
	lastSaved  time.Time
}

// NewEngine creates an engine for a brand-new entry. If the snapshot store
// holds a backup owned by the current user and newer than BackupMaxAge, the
// engine starts in StateAwaitingRestoreDecision and the caller must call
// RestoreDecision before any mutating operation.
func NewEngine(cfg Config) *Engine {
	e := &Engine{cfg: cfg, bag: Bag{}, state: StateReady}
	if cfg.Snapshots == nil {
		return e
	}
	snap, ok, err := cfg.Snapshots.Load()
	if err != nil || !ok {
		return e
	}
	if snap.UserID != cfg.UserID {
		return e
	}
	if cfg.now().Sub(snap.Timestamp) >= BackupMaxAge {
		return e
	}
	e.state = StateAwaitingRestoreDecision
	return e
}

// NewEngineForRecord creates an engine prefilled from an existing final
// record for edit-and-resubmit. No restore offer is made and no draft is
// associated.
func NewEngineForRecord(cfg Config, recordID int64, form Bag) *Engine {
	return &Engine{cfg: cfg, bag: form.Clone(), state: StateReady, recordID: recordID}
}

// NewEngineForDraft creates an engine prefilled from a saved draft. No
// restore offer is made.
func NewEngineForDraft(cfg Config, draftID int64, form Bag) *Engine {
	return &Engine{cfg: cfg, bag: form.Clone(), state: StateReady, draftID: draftID}
}

// State returns the entry-gate state.
func (e *Engine) State() EngineState { return e.state }

// Step returns the current step index.
func (e *Engine) Step() int { return e.step }

// Bag returns the live value bag. Callers must treat it as read-only and
// route edits through SetField.
func (e *Engine) Bag() Bag { return e.bag }

// DraftID returns the id of the associated draft, or 0 when none exists.
func (e *Engine) DraftID() int64 { return e.draftID }

// LastSaved reports when the last successful draft save completed.
func (e *Engine) LastSaved() time.Time { return e.lastSaved }

// RestoreDecision resolves a pending restore offer: restore replaces the bag
// with the snapshot, decline deletes the snapshot. Either way the engine
// becomes ready.
func (e *Engine) RestoreDecision(restore bool) error {
	if e.state != StateAwaitingRestoreDecision {
		return ErrNoRestorePending
	}
	snap, ok, err := e.cfg.Snapshots.Load()
	if err == nil && ok && restore {
		e.bag = snap.Bag.Clone()
	}
	if !restore {
		// Best effort; a failed delete just leaves a stale backup behind.
		_ = e.cfg.Snapshots.Clear()
	}
	e.state = StateReady
	return nil
}

// SetField replaces the value for fieldID and writes the whole bag to the
// snapshot store stamped with the current time and user. The local write is
// best-effort and last-write-wins.
func (e *Engine) SetField(fieldID string, v Value) error {
	if e.state != StateReady {
		return ErrAwaitingRestoreDecision
	}
	e.bag.Set(fieldID, v)
	if e.cfg.Snapshots != nil {
		_ = e.cfg.Snapshots.Save(Snapshot{
			Bag:       e.bag.Clone(),
			Timestamp: e.cfg.now(),
			UserID:    e.cfg.UserID,
		})
	}
	return nil
}

// ToggleOption adds or removes one option of a multi-select field, preserving
// insertion order, and routes the result through SetField.
func (e *Engine) ToggleOption(fieldID, option string, checked bool) error {
	if e.state != StateReady {
		return ErrAwaitingRestoreDecision
	}
	var current []string
	if v, ok := e.bag.Get(fieldID); ok && v.Kind == KindList {
		current = v.List
	}
	var next []string
	if checked {
		next = append(append(next, current...), option)
	} else {
		for _, item := range current {
			if item != option {
				next = append(next, item)
			}
		}
	}
	return e.SetField(fieldID, List(next...))
}

// Next advances to the following step; the index is clamped and the bag is
// untouched.
func (e *Engine) Next() { e.GoToStep(e.step + 1) }

// Prev retreats one step.
func (e *Engine) Prev() { e.GoToStep(e.step - 1) }

// GoToStep jumps to an arbitrary step, clamped to [0, len(sections)-1].
func (e *Engine) GoToStep(step int) {
	if step < 0 {
		step = 0
	}
	if max := len(e.cfg.Sections) - 1; step > max {
		step = max
	}
	e.step = step
}

// Validate collects every unmet requirement over the whole form. It has no
// side effects.
func (e *Engine) Validate() []Failure {
	return Validate(e.cfg.Sections, e.bag)
}

// SaveDraft upserts the current bag keyed by (user, serial number, center).
// It refuses locally, with no network call, when the serial number field is
// blank. On failure the bag and draft association are left untouched.
func (e *Engine) SaveDraft(ctx context.Context) error {
	if e.state != StateReady {
		return ErrAwaitingRestoreDecision
	}
	if e.saving || e.submitting {
		return ErrBusy
	}
	if v, ok := e.bag.Get(SerialNumberField); !ok || v.Blank() {
		return ErrSerialNumberRequired
	}

	e.saving = true
	defer func() { e.saving = false }()

	id, err := e.cfg.Drafts.Upsert(ctx, DraftRecord{
		UserID:    e.cfg.UserID,
		PatientID: e.bag.GetText(SerialNumberField),
		CenterID:  e.resolveCenterID(),
		Form:      e.bag.Clone(),
		UpdatedAt: e.cfg.now(),
	})
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	e.draftID = id
	e.lastSaved = e.cfg.now()
	return nil
}

// Submit validates the form and persists the final patient record. On
// success the associated draft row and local snapshot are removed. On any
// failure all local state, the bag included, survives for a retry.
func (e *Engine) Submit(ctx context.Context) error {
	if e.state != StateReady {
		return ErrAwaitingRestoreDecision
	}
	if e.saving || e.submitting {
		return ErrBusy
	}
	if failures := e.Validate(); len(failures) > 0 {
		return &ValidationError{Failures: failures}
	}

	e.submitting = true
	defer func() { e.submitting = false }()

	age, _ := e.bag[AgeField].Int()
	sub := Submission{
		PatientID: e.bag.GetText(SerialNumberField),
		Age:       age,
		Sex:       e.bag.GetText(SexField),
		CenterID:  e.resolveCenterID(),
		Form:      e.bag.Clone(),
	}

	var err error
	if e.recordID != 0 {
		err = e.cfg.Records.Update(ctx, e.recordID, sub)
	} else {
		_, err = e.cfg.Records.Insert(ctx, sub)
	}
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if e.draftID != 0 {
		if err := e.cfg.Drafts.Delete(ctx, e.draftID); err != nil {
			return fmt.Errorf("remove draft after submit: %w", err)
		}
		e.draftID = 0
	}
	if e.cfg.Snapshots != nil {
		_ = e.cfg.Snapshots.Clear()
	}
	return nil
}

// resolveCenterID picks the owning center: admins may choose one through the
// centerId field, everyone else is pinned to their own center. A center
// change simply addresses a different draft key; no row is migrated.
func (e *Engine) resolveCenterID() int64 {
	if e.cfg.IsAdmin {
		if v, ok := e.bag.Get(CenterField); ok && !v.Blank() {
			if id, err := v.Int(); err == nil {
				return int64(id)
			}
		}
	}
	return e.cfg.CenterID
}
