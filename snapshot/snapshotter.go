package snapshot

import (
	"fmt"
	"time"

	cm "github.com/quorumnet/watchtower/common"
	"github.com/sirupsen/logrus"
)

// Strategy bundles the kind-specific rules of the reconciliation algorithm.
// The Snapshotter owns the shared interval logic; a strategy only decides
// what an entity's key is, what counts as a change, when a change is folded
// into the open snapshot, and when a missing entity is archived.
type Strategy[E any] interface {
	// Kind returns the entity kind this strategy serves.
	Kind() Kind
	// NaturalKey extracts and validates the entity's natural key. An error
	// marks the entity as malformed; it is skipped without aborting the
	// batch.
	NaturalKey(entity E) (string, error)
	// Build creates a fresh open snapshot for a newly observed entity.
	Build(versioned *VersionedEntity, entity E, at time.Time) *Snapshot
	// BuildNext creates the open snapshot that replaces current after a
	// change.
	BuildNext(current *Snapshot, entity E, at time.Time) *Snapshot
	// HasChanged reports whether the observed entity differs from its open
	// snapshot.
	HasChanged(current *Snapshot, entity E) bool
	// Suppress reports whether a detected change should be folded into the
	// open snapshot instead of producing a new version.
	Suppress(current *Snapshot, entity E, at time.Time) bool
	// Archivable reports whether an entity that was not observed this cycle
	// should be considered gone, closing its snapshot with no replacement.
	Archivable(current *Snapshot, at time.Time) bool
}

// Snapshotter reconciles a freshly observed entity list against the
// currently active snapshots for one point in time. The same engine serves
// nodes and organizations through the Strategy hooks.
type Snapshotter[E any] struct {
	store    Store
	strategy Strategy[E]
	logger   *logrus.Entry
}

// NewSnapshotter creates a Snapshotter for one entity kind.
func NewSnapshotter[E any](store Store, strategy Strategy[E], logger *logrus.Entry) *Snapshotter[E] {
	return &Snapshotter[E]{
		store:    store,
		strategy: strategy,
		logger:   logger.WithField("kind", string(strategy.Kind())),
	}
}

// Reconcile compares the observed entities against the active snapshots at
// time `at` and returns the touched snapshots: created ones and ones that
// were closed. Persisting them is the caller's side effect.
func (s *Snapshotter[E]) Reconcile(observed []E, at time.Time) ([]*Snapshot, error) {
	active, err := s.store.Active(s.strategy.Kind())
	if err != nil {
		return nil, fmt.Errorf("loading active %s snapshots: %v", s.strategy.Kind(), err)
	}

	byKey := make(map[string]*Snapshot, len(active))
	for _, snap := range active {
		byKey[snap.Entity.NaturalKey] = snap
	}

	touched := []*Snapshot{}
	seen := map[string]bool{}

	for _, entity := range observed {
		key, err := s.strategy.NaturalKey(entity)
		if err != nil {
			s.logger.WithError(err).Warn("Skipping entity with malformed natural key")
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		current, ok := byKey[key]
		if !ok {
			versioned, err := s.versionedEntity(key, at)
			if err != nil {
				return nil, err
			}
			touched = append(touched, s.strategy.Build(versioned, entity, at))
			continue
		}

		if !s.strategy.HasChanged(current, entity) {
			continue
		}

		if s.strategy.Suppress(current, entity, at) {
			s.logger.WithField("key", key).Debug("Change suppressed")
			continue
		}

		if err := current.Close(at); err != nil {
			return nil, err
		}
		touched = append(touched, current, s.strategy.BuildNext(current, entity, at))
	}

	// Active snapshots whose entity was not observed this cycle. A transient
	// miss leaves the snapshot open; only archivable entities are closed.
	for key, snap := range byKey {
		if seen[key] {
			continue
		}
		if !s.strategy.Archivable(snap, at) {
			continue
		}
		s.logger.WithField("key", key).Info("Archiving entity")
		if err := snap.Close(at); err != nil {
			return nil, err
		}
		touched = append(touched, snap)
	}

	return touched, nil
}

// versionedEntity looks up the stable identity record by natural key, or
// creates one with `at` as the discovery date.
func (s *Snapshotter[E]) versionedEntity(key string, at time.Time) (*VersionedEntity, error) {
	versioned, err := s.store.Entity(s.strategy.Kind(), key)
	if err == nil {
		return versioned, nil
	}
	if !cm.IsStore(err, cm.KeyNotFound) {
		return nil, fmt.Errorf("looking up %s %s: %v", s.strategy.Kind(), key, err)
	}
	return &VersionedEntity{
		Kind:          s.strategy.Kind(),
		NaturalKey:    key,
		DiscoveryDate: at,
	}, nil
}
