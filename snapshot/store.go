package snapshot

import "time"

// Store is an interface for snapshot backend stores. Implementations must
// enforce the unique-open-snapshot invariant at write time: reconciliation
// reads the active set once per cycle and does not re-validate before
// writing.
type Store interface {
	// Entity returns the versioned entity with the given natural key, or a
	// KeyNotFound store error.
	Entity(kind Kind, naturalKey string) (*VersionedEntity, error)
	// Active returns all open-ended snapshots of a kind.
	Active(kind Kind) ([]*Snapshot, error)
	// ActiveAt returns the snapshots of a kind whose interval covers the
	// given time.
	ActiveAt(kind Kind, at time.Time) ([]*Snapshot, error)
	// History returns an entity's snapshots sorted by start date.
	History(kind Kind, naturalKey string) ([]*Snapshot, error)
	// Save persists created and closed snapshots, registering previously
	// unknown entities on the way. Snapshot rows are never deleted.
	Save(snapshots []*Snapshot) error
	// Close closes the underlying database.
	Close() error
}
