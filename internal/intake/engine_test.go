package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ── In-memory stores ──

type memDraftStore struct {
	drafts   map[int64]DraftRecord
	nextID   int64
	upserts  int
	failNext error
}

func newMemDraftStore() *memDraftStore {
	return &memDraftStore{drafts: make(map[int64]DraftRecord), nextID: 1}
}

func (s *memDraftStore) Upsert(_ context.Context, d DraftRecord) (int64, error) {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return 0, err
	}
	s.upserts++
	for id, existing := range s.drafts {
		if existing.UserID == d.UserID && existing.PatientID == d.PatientID && existing.CenterID == d.CenterID {
			s.drafts[id] = d
			return id, nil
		}
	}
	id := s.nextID
	s.nextID++
	s.drafts[id] = d
	return id, nil
}

func (s *memDraftStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.drafts[id]; !ok {
		return errors.New("draft not found")
	}
	delete(s.drafts, id)
	return nil
}

type memRecordStore struct {
	records  map[int64]Submission
	nextID   int64
	failNext error
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{records: make(map[int64]Submission), nextID: 1}
}

func (s *memRecordStore) Insert(_ context.Context, sub Submission) (int64, error) {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return 0, err
	}
	id := s.nextID
	s.nextID++
	s.records[id] = sub
	return id, nil
}

func (s *memRecordStore) Update(_ context.Context, id int64, sub Submission) error {
	if _, ok := s.records[id]; !ok {
		return errors.New("record not found")
	}
	s.records[id] = sub
	return nil
}

type fixture struct {
	cfg     Config
	drafts  *memDraftStore
	records *memRecordStore
	snaps   *MemorySnapshotStore
	userID  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		drafts:  newMemDraftStore(),
		records: newMemRecordStore(),
		snaps:   NewMemorySnapshotStore(),
		userID:  uuid.New(),
	}
	f.cfg = Config{
		Sections:  DefaultSections(),
		UserID:    f.userID,
		CenterID:  1,
		Snapshots: f.snaps,
		Drafts:    f.drafts,
		Records:   f.records,
	}
	return f
}

func fillComplete(t *testing.T, e *Engine) {
	t.Helper()
	for id, v := range completeBag() {
		if err := e.SetField(id, v); err != nil {
			t.Fatalf("SetField(%s): %v", id, err)
		}
	}
}

// ── Entry gate / restore ──

func TestNewEngineOffersRestoreForOwnRecentBackup(t *testing.T) {
	f := newFixture()
	if err := f.snaps.Save(Snapshot{
		Bag:       Bag{SerialNumberField: String("NDP-9")},
		Timestamp: time.Now().Add(-time.Hour),
		UserID:    f.userID,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e := NewEngine(f.cfg)
	if e.State() != StateAwaitingRestoreDecision {
		t.Fatalf("state = %v, want awaiting restore decision", e.State())
	}

	// Mutations are blocked until the decision lands.
	if err := e.SetField(AgeField, Number(30)); err != ErrAwaitingRestoreDecision {
		t.Errorf("SetField = %v, want ErrAwaitingRestoreDecision", err)
	}
	if err := e.SaveDraft(context.Background()); err != ErrAwaitingRestoreDecision {
		t.Errorf("SaveDraft = %v, want ErrAwaitingRestoreDecision", err)
	}

	if err := e.RestoreDecision(true); err != nil {
		t.Fatalf("RestoreDecision: %v", err)
	}
	if e.State() != StateReady {
		t.Errorf("state = %v, want ready", e.State())
	}
	if e.Bag().GetText(SerialNumberField) != "NDP-9" {
		t.Errorf("restored bag = %v", e.Bag())
	}
}

func TestNewEngineIgnoresForeignBackup(t *testing.T) {
	f := newFixture()
	if err := f.snaps.Save(Snapshot{
		Bag:       Bag{SerialNumberField: String("NDP-9")},
		Timestamp: time.Now(),
		UserID:    uuid.New(), // someone else's
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e := NewEngine(f.cfg); e.State() != StateReady {
		t.Errorf("foreign backup triggered a restore offer")
	}
}

func TestNewEngineIgnoresStaleBackup(t *testing.T) {
	f := newFixture()
	if err := f.snaps.Save(Snapshot{
		Bag:       Bag{SerialNumberField: String("NDP-9")},
		Timestamp: time.Now().Add(-25 * time.Hour),
		UserID:    f.userID,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if e := NewEngine(f.cfg); e.State() != StateReady {
		t.Errorf("stale backup triggered a restore offer")
	}
}

func TestDeclineRestoreClearsBackup(t *testing.T) {
	f := newFixture()
	if err := f.snaps.Save(Snapshot{
		Bag:       Bag{SerialNumberField: String("NDP-9")},
		Timestamp: time.Now(),
		UserID:    f.userID,
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e := NewEngine(f.cfg)
	if err := e.RestoreDecision(false); err != nil {
		t.Fatalf("RestoreDecision: %v", err)
	}
	if len(e.Bag()) != 0 {
		t.Errorf("declined restore still populated the bag: %v", e.Bag())
	}
	if _, ok, _ := f.snaps.Load(); ok {
		t.Error("declined backup not cleared")
	}

	// The decision is one-shot.
	if err := e.RestoreDecision(true); err != ErrNoRestorePending {
		t.Errorf("second decision = %v, want ErrNoRestorePending", err)
	}
}

// ── Field edits ──

func TestSetFieldSnapshotsEveryEdit(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)

	if err := e.SetField(SerialNumberField, String("NDP-1")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	snap, ok, err := f.snaps.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if snap.UserID != f.userID {
		t.Error("snapshot not stamped with the editing user")
	}
	if snap.Bag.GetText(SerialNumberField) != "NDP-1" {
		t.Errorf("snapshot bag = %v", snap.Bag)
	}

	// Setting the same value twice is idempotent for the bag and the backup
	// contents (only the timestamp moves).
	if err := e.SetField(SerialNumberField, String("NDP-1")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if got := e.Bag().GetText(SerialNumberField); got != "NDP-1" {
		t.Errorf("bag = %q", got)
	}
	again, ok, err := f.snaps.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if len(again.Bag) != 1 || again.Bag.GetText(SerialNumberField) != "NDP-1" {
		t.Errorf("snapshot bag after repeated set = %v", again.Bag)
	}

	// The snapshot holds a copy, not the live bag.
	snap.Bag.Set(SerialNumberField, String("tampered"))
	if e.Bag().GetText(SerialNumberField) != "NDP-1" {
		t.Error("snapshot aliases the live bag")
	}
}

func TestToggleOptionPreservesInsertionOrder(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)

	for _, opt := range []string{"Metformin", "Insulin", "SGLT2 inhibitor"} {
		if err := e.ToggleOption("therapy", opt, true); err != nil {
			t.Fatalf("ToggleOption: %v", err)
		}
	}
	if got := e.Bag().GetText("therapy"); got != "Metformin; Insulin; SGLT2 inhibitor" {
		t.Errorf("therapy = %q", got)
	}

	if err := e.ToggleOption("therapy", "Insulin", false); err != nil {
		t.Fatalf("ToggleOption: %v", err)
	}
	if got := e.Bag().GetText("therapy"); got != "Metformin; SGLT2 inhibitor" {
		t.Errorf("after removal = %q", got)
	}
}

// ── Steps ──

func TestStepNavigationClamps(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)

	e.Prev()
	if e.Step() != 0 {
		t.Errorf("step = %d, want clamp at 0", e.Step())
	}
	for i := 0; i < 20; i++ {
		e.Next()
	}
	if want := len(f.cfg.Sections) - 1; e.Step() != want {
		t.Errorf("step = %d, want clamp at %d", e.Step(), want)
	}
	e.GoToStep(2)
	if e.Step() != 2 {
		t.Errorf("step = %d", e.Step())
	}
}

// ── Drafts ──

func TestSaveDraftRequiresSerialNoNetwork(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)

	if err := e.SaveDraft(context.Background()); err != ErrSerialNumberRequired {
		t.Errorf("SaveDraft = %v, want ErrSerialNumberRequired", err)
	}
	// Whitespace counts as blank.
	if err := e.SetField(SerialNumberField, String("   ")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.SaveDraft(context.Background()); err != ErrSerialNumberRequired {
		t.Errorf("SaveDraft = %v, want ErrSerialNumberRequired", err)
	}
	if f.drafts.upserts != 0 {
		t.Error("store was called despite missing serial number")
	}
}

func TestSaveDraftUpsertsSameKey(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)
	ctx := context.Background()

	if err := e.SetField(SerialNumberField, String("NDP-1")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.SaveDraft(ctx); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	first := e.DraftID()
	if first == 0 {
		t.Fatal("draft id not recorded")
	}
	if e.LastSaved().IsZero() {
		t.Error("last saved not recorded")
	}

	if err := e.SetField(AgeField, Number(61)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.SaveDraft(ctx); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if e.DraftID() != first {
		t.Errorf("second save created draft %d, want upsert into %d", e.DraftID(), first)
	}
	if len(f.drafts.drafts) != 1 {
		t.Errorf("draft rows = %d, want 1", len(f.drafts.drafts))
	}
}

func TestSaveDraftFailureKeepsState(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)
	ctx := context.Background()

	if err := e.SetField(SerialNumberField, String("NDP-1")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	f.drafts.failNext = errors.New("network down")
	if err := e.SaveDraft(ctx); err == nil {
		t.Fatal("expected save failure")
	}
	if e.DraftID() != 0 {
		t.Error("failed save still recorded a draft id")
	}
	if e.Bag().GetText(SerialNumberField) != "NDP-1" {
		t.Error("failed save lost the bag")
	}

	// Next attempt succeeds.
	if err := e.SaveDraft(ctx); err != nil {
		t.Errorf("retry SaveDraft: %v", err)
	}
}

// ── Submit ──

func TestSubmitValidatesFirst(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)

	if err := e.SetField(SerialNumberField, String("NDP-1")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	err := e.Submit(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Submit = %v, want ValidationError", err)
	}
	if len(f.records.records) != 0 {
		t.Error("invalid submission reached the record store")
	}
}

func TestSubmitReportsSingleMissingField(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)
	ctx := context.Background()

	// Everything set except sex.
	for id, v := range completeBag() {
		if id == SexField {
			continue
		}
		if err := e.SetField(id, v); err != nil {
			t.Fatalf("SetField(%s): %v", id, err)
		}
	}

	err := e.Submit(ctx)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Submit = %v, want ValidationError", err)
	}
	if len(ve.Failures) != 1 {
		t.Fatalf("failures = %v, want exactly one", ve.Failures)
	}
	if got := ve.Failures[0].Message; got != "Bio Data: Sex" {
		t.Errorf("failure = %q, want %q", got, "Bio Data: Sex")
	}

	if err := e.SetField(SexField, String("F")); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.Submit(ctx); err != nil {
		t.Fatalf("Submit after fixing: %v", err)
	}
	if len(f.records.records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.records.records))
	}
	for _, sub := range f.records.records {
		if sub.Sex != "F" {
			t.Errorf("Sex = %q, want F", sub.Sex)
		}
	}
}

func TestSubmitPersistsAndCleansUp(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)
	ctx := context.Background()

	fillComplete(t, e)
	if err := e.SaveDraft(ctx); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if err := e.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(f.records.records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.records.records))
	}
	for _, sub := range f.records.records {
		if sub.PatientID != "NDP-001" || sub.Age != 47 || sub.Sex != "M" || sub.CenterID != 1 {
			t.Errorf("submission = %+v", sub)
		}
	}
	if len(f.drafts.drafts) != 0 {
		t.Error("draft row not removed after submit")
	}
	if _, ok, _ := f.snaps.Load(); ok {
		t.Error("local backup not cleared after submit")
	}
	if e.DraftID() != 0 {
		t.Error("draft association not cleared")
	}
}

func TestSubmitFailureKeepsEverything(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)
	ctx := context.Background()

	fillComplete(t, e)
	if err := e.SaveDraft(ctx); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	f.records.failNext = errors.New("network down")
	if err := e.Submit(ctx); err == nil {
		t.Fatal("expected submit failure")
	}
	if len(f.drafts.drafts) != 1 {
		t.Error("draft removed despite failed submit")
	}
	if _, ok, _ := f.snaps.Load(); !ok {
		t.Error("backup cleared despite failed submit")
	}
	if len(e.Bag()) == 0 {
		t.Error("bag lost on failed submit")
	}

	// Retry succeeds and cleans up.
	if err := e.Submit(ctx); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if len(f.drafts.drafts) != 0 {
		t.Error("draft not removed after successful retry")
	}
}

func TestResubmitUpdatesExistingRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Seed an existing record.
	seed := completeBag()
	id, err := f.records.Insert(ctx, Submission{PatientID: "NDP-001", Age: 47, Sex: "M", CenterID: 1, Form: seed})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	e := NewEngineForRecord(f.cfg, id, seed)
	if err := e.SetField("hba1c", Number(8.1)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(f.records.records) != 1 {
		t.Fatalf("records = %d, want update in place", len(f.records.records))
	}
	if got := f.records.records[id].Form.GetText("hba1c"); got != "8.1" {
		t.Errorf("hba1c = %q, want 8.1", got)
	}
}

func TestAdminCenterOverride(t *testing.T) {
	f := newFixture()
	f.cfg.IsAdmin = true
	e := NewEngine(f.cfg)
	ctx := context.Background()

	fillComplete(t, e)
	if err := e.SetField(CenterField, Number(7)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, sub := range f.records.records {
		if sub.CenterID != 7 {
			t.Errorf("centerID = %d, want admin override 7", sub.CenterID)
		}
	}
}

func TestNonAdminCenterFieldIgnored(t *testing.T) {
	f := newFixture()
	e := NewEngine(f.cfg)
	ctx := context.Background()

	fillComplete(t, e)
	if err := e.SetField(CenterField, Number(7)); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if err := e.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	for _, sub := range f.records.records {
		if sub.CenterID != 1 {
			t.Errorf("centerID = %d, want pinned 1", sub.CenterID)
		}
	}
}
