package intake

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Bag: Bag{
			SerialNumberField: String("NDP-1"),
			AgeField:          Number(47),
			"therapy":         List("Metformin", "Insulin"),
		},
		Timestamp: time.Now().Truncate(time.Second),
		UserID:    uuid.New(),
	}
}

func TestMemorySnapshotStore(t *testing.T) {
	store := NewMemorySnapshotStore()

	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	snap := testSnapshot()
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.UserID != snap.UserID || got.Bag.GetText(SerialNumberField) != "NDP-1" {
		t.Errorf("loaded = %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Error("store not empty after Clear")
	}
	// Clearing an empty store is fine.
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileSnapshotStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	store := NewFileSnapshotStore(path)

	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}

	snap := testSnapshot()
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store over the same path sees the snapshot: survives restarts.
	got, ok, err := NewFileSnapshotStore(path).Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.UserID != snap.UserID {
		t.Errorf("userID = %v, want %v", got.UserID, snap.UserID)
	}
	if !got.Timestamp.Equal(snap.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, snap.Timestamp)
	}
	if got.Bag.GetText("therapy") != "Metformin; Insulin" {
		t.Errorf("therapy = %q", got.Bag.GetText("therapy"))
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Error("snapshot survived Clear")
	}
	if err := store.Clear(); err != nil {
		t.Errorf("clearing a missing file: %v", err)
	}
}

func TestFileSnapshotStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	store := NewFileSnapshotStore(path)
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Load(); err == nil {
		t.Error("expected error for corrupt backup")
	}
}
