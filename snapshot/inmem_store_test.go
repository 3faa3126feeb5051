package snapshot

import (
	"testing"
	"time"

	cm "github.com/quorumnet/watchtower/common"
)

func storeSnapshots(t *testing.T, store Store) (*VersionedEntity, []*Snapshot) {
	t.Helper()

	entity := &VersionedEntity{Kind: KindNode, NaturalKey: testPublicKey('A'), DiscoveryDate: t0}

	end := t0.Add(time.Hour)
	closed := &Snapshot{
		Entity:    entity,
		StartDate: t0,
		EndDate:   &end,
		Node:      &NodeVersion{Address: "1.1.1.1:11625"},
	}
	open := &Snapshot{
		Entity:    entity,
		StartDate: end,
		Node:      &NodeVersion{Address: "2.2.2.2:11625"},
	}

	if err := store.Save([]*Snapshot{closed, open}); err != nil {
		t.Fatal(err)
	}

	return entity, []*Snapshot{closed, open}
}

func TestInmemStoreEntity(t *testing.T) {
	store := NewInmemStore()
	entity, _ := storeSnapshots(t, store)

	stored, err := store.Entity(KindNode, entity.NaturalKey)
	if err != nil {
		t.Fatal(err)
	}
	if stored.NaturalKey != entity.NaturalKey {
		t.Fatalf("entity key should be %s, not %s", entity.NaturalKey, stored.NaturalKey)
	}

	_, err = store.Entity(KindNode, testPublicKey('Z'))
	if !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound error, got %v", err)
	}

	_, err = store.Entity(KindOrganization, entity.NaturalKey)
	if !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("kinds should not share a keyspace, got %v", err)
	}
}

func TestInmemStoreActive(t *testing.T) {
	store := NewInmemStore()
	_, snapshots := storeSnapshots(t, store)

	active, err := store.Active(KindNode)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Fatalf("1 active snapshot, not %d", len(active))
	}
	if active[0] != snapshots[1] {
		t.Fatal("the open snapshot should be active")
	}
}

func TestInmemStoreActiveAt(t *testing.T) {
	store := NewInmemStore()
	_, snapshots := storeSnapshots(t, store)

	testCases := []struct {
		name     string
		at       time.Time
		expected *Snapshot
	}{
		{"before discovery", t0.Add(-time.Minute), nil},
		{"during first interval", t0.Add(30 * time.Minute), snapshots[0]},
		{"at the boundary", t0.Add(time.Hour), snapshots[1]},
		{"after the boundary", t0.Add(2 * time.Hour), snapshots[1]},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			active, err := store.ActiveAt(KindNode, tc.at)
			if err != nil {
				t.Fatal(err)
			}
			if tc.expected == nil {
				if len(active) != 0 {
					t.Fatalf("no snapshot should be active, got %d", len(active))
				}
				return
			}
			if len(active) != 1 || active[0] != tc.expected {
				t.Fatalf("wrong active snapshot at %s", tc.at)
			}
		})
	}
}

func TestInmemStoreHistory(t *testing.T) {
	store := NewInmemStore()
	entity, snapshots := storeSnapshots(t, store)

	history, err := store.History(KindNode, entity.NaturalKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("2 snapshots, not %d", len(history))
	}
	if history[0] != snapshots[0] || history[1] != snapshots[1] {
		t.Fatal("history should be sorted by start date")
	}

	_, err = store.History(KindNode, testPublicKey('Z'))
	if !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound error, got %v", err)
	}
}

func TestInmemStoreSaveIsIdempotentPerSnapshot(t *testing.T) {
	store := NewInmemStore()
	entity, snapshots := storeSnapshots(t, store)

	// the reconciler hands back snapshots it closed in place, which are
	// already in the history
	if err := store.Save(snapshots); err != nil {
		t.Fatal(err)
	}

	history, _ := store.History(KindNode, entity.NaturalKey)
	if len(history) != 2 {
		t.Fatalf("re-saving known snapshots should not duplicate them, got %d", len(history))
	}
}
