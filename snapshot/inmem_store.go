package snapshot

import (
	"sort"
	"time"

	cm "github.com/quorumnet/watchtower/common"
)

// InmemStore implements the Store interface with plain maps. It holds the
// full snapshot history in memory, so it is suitable for tests and for
// deployments where the history is bounded by the suppression and archival
// rules.
type InmemStore struct {
	entities map[Kind]map[string]*VersionedEntity
	history  map[Kind]map[string][]*Snapshot
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		entities: map[Kind]map[string]*VersionedEntity{
			KindNode:         {},
			KindOrganization: {},
		},
		history: map[Kind]map[string][]*Snapshot{
			KindNode:         {},
			KindOrganization: {},
		},
	}
}

// Entity implements the Store interface.
func (s *InmemStore) Entity(kind Kind, naturalKey string) (*VersionedEntity, error) {
	entity, ok := s.entities[kind][naturalKey]
	if !ok {
		return nil, cm.NewStoreErr("VersionedEntity", cm.KeyNotFound, naturalKey)
	}
	return entity, nil
}

// Active implements the Store interface.
func (s *InmemStore) Active(kind Kind) ([]*Snapshot, error) {
	res := []*Snapshot{}
	for _, snapshots := range s.history[kind] {
		for _, snap := range snapshots {
			if snap.Open() {
				res = append(res, snap)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Entity.NaturalKey < res[j].Entity.NaturalKey
	})
	return res, nil
}

// ActiveAt implements the Store interface.
func (s *InmemStore) ActiveAt(kind Kind, at time.Time) ([]*Snapshot, error) {
	res := []*Snapshot{}
	for _, snapshots := range s.history[kind] {
		for _, snap := range snapshots {
			if snap.ActiveAt(at) {
				res = append(res, snap)
			}
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Entity.NaturalKey < res[j].Entity.NaturalKey
	})
	return res, nil
}

// History implements the Store interface.
func (s *InmemStore) History(kind Kind, naturalKey string) ([]*Snapshot, error) {
	snapshots, ok := s.history[kind][naturalKey]
	if !ok {
		return nil, cm.NewStoreErr("Snapshot", cm.KeyNotFound, naturalKey)
	}
	res := append([]*Snapshot{}, snapshots...)
	sort.Slice(res, func(i, j int) bool {
		return res[i].StartDate.Before(res[j].StartDate)
	})
	return res, nil
}

// Save implements the Store interface. New snapshots are appended to their
// entity's history; snapshots already in the history were closed in place by
// the reconciler and need no further work. Saving a second open snapshot for
// the same entity returns an OpenSnapshotExists store error.
func (s *InmemStore) Save(snapshots []*Snapshot) error {
	for _, snap := range snapshots {
		kind := snap.Entity.Kind
		key := snap.Entity.NaturalKey

		if _, ok := s.entities[kind][key]; !ok {
			s.entities[kind][key] = snap.Entity
		}

		if s.contains(kind, key, snap) {
			continue
		}

		if snap.Open() {
			for _, existing := range s.history[kind][key] {
				if existing.Open() {
					return cm.NewStoreErr("Snapshot", cm.OpenSnapshotExists, key)
				}
			}
		}

		s.history[kind][key] = append(s.history[kind][key], snap)
	}
	return nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

func (s *InmemStore) contains(kind Kind, key string, snap *Snapshot) bool {
	for _, existing := range s.history[kind][key] {
		if existing == snap {
			return true
		}
	}
	return false
}
