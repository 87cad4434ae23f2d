package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a single device-local copy of an in-progress bag, kept for
// crash recovery. At most one snapshot exists per store; every save
// overwrites the previous one.
type Snapshot struct {
	Bag       Bag       `json:"form_data"`
	Timestamp time.Time `json:"timestamp"`
	UserID    uuid.UUID `json:"user_id"`
}

// SnapshotStore is the local-backup port the engine depends on. Writes are
// best-effort: the engine logs nothing and never fails a user action over a
// snapshot error.
type SnapshotStore interface {
	// Load returns the current snapshot, or ok=false when none exists.
	Load() (Snapshot, bool, error)
	// Save overwrites the single snapshot slot.
	Save(Snapshot) error
	// Clear removes the snapshot if present.
	Clear() error
}

// MemorySnapshotStore keeps the snapshot in process memory. It backs tests
// and embedders that have no durable local storage.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	snap Snapshot
	set  bool
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load() (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.set, nil
}

func (s *MemorySnapshotStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.set = true
	return nil
}

func (s *MemorySnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
	s.set = false
	return nil
}
