package snapshot

import (
	"strings"
	"testing"
	"time"

	cm "github.com/quorumnet/watchtower/common"
	"github.com/quorumnet/watchtower/monitor"
	"github.com/sirupsen/logrus"
)

var t0 = time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

func testPublicKey(c byte) string {
	return "G" + strings.Repeat(string(c), 55)
}

func testNode(c byte, address string) *monitor.Node {
	return &monitor.Node{
		PublicKey: testPublicKey(c),
		Address:   address,
		QuorumSet: &monitor.QuorumSet{
			Threshold:  1,
			Validators: []string{testPublicKey('V')},
		},
		Geo:            &monitor.Geo{CountryCode: "DE", CountryName: "Germany"},
		Details:        &monitor.NodeDetails{Name: "node-" + string(c)},
		OrganizationID: "org-1",
		Active:         true,
		Validating:     true,
	}
}

func testOrg(id string, validators ...string) *monitor.Organization {
	return &monitor.Organization{
		ID:         id,
		Name:       "Org " + id,
		Validators: validators,
		Available:  true,
	}
}

func initNodeSnapshotter(t *testing.T) (*Snapshotter[*monitor.Node], *InmemStore) {
	store := NewInmemStore()
	logger := cm.NewTestEntry(t, logrus.DebugLevel)
	return NewSnapshotter[*monitor.Node](store, NewNodeStrategy(), logger), store
}

func TestReconcileNewEntities(t *testing.T) {
	snapshotter, store := initNodeSnapshotter(t)

	nodes := []*monitor.Node{testNode('A', "1.1.1.1:11625"), testNode('B', "2.2.2.2:11625")}

	touched, err := snapshotter.Reconcile(nodes, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(touched) != 2 {
		t.Fatalf("touched 2 snapshots, not %d", len(touched))
	}
	for _, snap := range touched {
		if !snap.Open() {
			t.Fatalf("new snapshot of %s should be open", snap.Entity)
		}
		if !snap.StartDate.Equal(t0) {
			t.Fatalf("new snapshot should start at %s, not %s", t0, snap.StartDate)
		}
		if !snap.Entity.DiscoveryDate.Equal(t0) {
			t.Fatalf("entity should be discovered at %s, not %s", t0, snap.Entity.DiscoveryDate)
		}
	}

	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	active, _ := store.Active(KindNode)
	if len(active) != 2 {
		t.Fatalf("2 active snapshots, not %d", len(active))
	}
}

func TestReconcileUnchanged(t *testing.T) {
	snapshotter, store := initNodeSnapshotter(t)

	nodes := []*monitor.Node{testNode('A', "1.1.1.1:11625")}

	touched, _ := snapshotter.Reconcile(nodes, t0)
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	touched, err := snapshotter.Reconcile(nodes, t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(touched) != 0 {
		t.Fatalf("unchanged node should touch no snapshots, got %d", len(touched))
	}
}

func TestReconcileChange(t *testing.T) {
	snapshotter, store := initNodeSnapshotter(t)

	touched, _ := snapshotter.Reconcile([]*monitor.Node{testNode('A', "1.1.1.1:11625")}, t0)
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	changed := testNode('A', "1.1.1.1:11625")
	changed.Details = &monitor.NodeDetails{Name: "renamed"}

	t1 := t0.Add(time.Hour)
	touched, err := snapshotter.Reconcile([]*monitor.Node{changed}, t1)
	if err != nil {
		t.Fatal(err)
	}
	if len(touched) != 2 {
		t.Fatalf("a change should touch 2 snapshots, got %d", len(touched))
	}
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	history, err := store.History(KindNode, testPublicKey('A'))
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("2 versions, not %d", len(history))
	}

	if history[0].Open() {
		t.Fatal("first version should be closed")
	}
	if !history[0].EndDate.Equal(t1) {
		t.Fatalf("first version should close at %s, not %s", t1, history[0].EndDate)
	}
	if !history[1].Open() {
		t.Fatal("second version should be open")
	}
	if !history[1].StartDate.Equal(*history[0].EndDate) {
		t.Fatal("intervals should be contiguous")
	}
	if history[1].Node.Details.Name != "renamed" {
		t.Fatalf("second version should carry the new details, got %s", history[1].Node.Details.Name)
	}
}

// TestIPChangeSuppression checks that a node whose ip changes twice within
// 24 hours produces exactly one new snapshot version, not two.
func TestIPChangeSuppression(t *testing.T) {
	snapshotter, store := initNodeSnapshotter(t)

	touched, _ := snapshotter.Reconcile([]*monitor.Node{testNode('A', "1.1.1.1:11625")}, t0)
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	firstMove := testNode('A', "2.2.2.2:11625")
	touched, err := snapshotter.Reconcile([]*monitor.Node{firstMove}, t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(touched) != 2 {
		t.Fatalf("first ip change should touch 2 snapshots, got %d", len(touched))
	}
	if !touched[1].IPChange {
		t.Fatal("replacement snapshot should be flagged as an ip change")
	}
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	t.Run("second change within grace period is suppressed", func(t *testing.T) {
		secondMove := testNode('A', "3.3.3.3:11625")
		touched, err := snapshotter.Reconcile([]*monitor.Node{secondMove}, t0.Add(2*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(touched) != 0 {
			t.Fatalf("suppressed change should touch no snapshots, got %d", len(touched))
		}

		history, _ := store.History(KindNode, testPublicKey('A'))
		if len(history) != 2 {
			t.Fatalf("2 versions, not %d", len(history))
		}
	})

	t.Run("change after grace period creates a version", func(t *testing.T) {
		thirdMove := testNode('A', "4.4.4.4:11625")
		touched, err := snapshotter.Reconcile([]*monitor.Node{thirdMove}, t0.Add(26*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(touched) != 2 {
			t.Fatalf("unsuppressed change should touch 2 snapshots, got %d", len(touched))
		}
	})
}

func TestReconcileMalformedKey(t *testing.T) {
	snapshotter, _ := initNodeSnapshotter(t)

	bad := testNode('A', "1.1.1.1:11625")
	bad.PublicKey = "not-a-key"

	touched, err := snapshotter.Reconcile([]*monitor.Node{bad, testNode('B', "2.2.2.2:11625")}, t0)
	if err != nil {
		t.Fatal(err)
	}
	if len(touched) != 1 {
		t.Fatalf("only the valid node should be touched, got %d snapshots", len(touched))
	}
	if touched[0].Entity.NaturalKey != testPublicKey('B') {
		t.Fatalf("wrong entity: %s", touched[0].Entity)
	}
}

func TestTransientMissLeavesSnapshotOpen(t *testing.T) {
	snapshotter, store := initNodeSnapshotter(t)

	touched, _ := snapshotter.Reconcile([]*monitor.Node{testNode('A', "1.1.1.1:11625")}, t0)
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	touched, err := snapshotter.Reconcile([]*monitor.Node{}, t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(touched) != 0 {
		t.Fatalf("missing node should not be archived, got %d touched snapshots", len(touched))
	}

	active, _ := store.Active(KindNode)
	if len(active) != 1 {
		t.Fatalf("snapshot should still be active, got %d", len(active))
	}
}

func TestOrganizationArchival(t *testing.T) {
	store := NewInmemStore()
	logger := cm.NewTestEntry(t, logrus.DebugLevel)
	nodeSnapshotter := NewSnapshotter[*monitor.Node](store, NewNodeStrategy(), logger)
	orgSnapshotter := NewSnapshotter[*monitor.Organization](store, NewOrganizationStrategy(store), logger)

	node := testNode('A', "1.1.1.1:11625")
	node.OrganizationID = "org-1"

	touched, _ := nodeSnapshotter.Reconcile([]*monitor.Node{node}, t0)
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}
	touched, _ = orgSnapshotter.Reconcile([]*monitor.Organization{testOrg("org-1", node.PublicKey)}, t0)
	if err := store.Save(touched); err != nil {
		t.Fatal(err)
	}

	t.Run("organization with tracked validators is not archived", func(t *testing.T) {
		touched, err := orgSnapshotter.Reconcile([]*monitor.Organization{}, t0.Add(time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(touched) != 0 {
			t.Fatalf("organization should not be archived, got %d touched snapshots", len(touched))
		}
	})

	t.Run("organization without tracked validators is archived", func(t *testing.T) {
		// move the node to another organization
		moved := testNode('A', "1.1.1.1:11625")
		moved.OrganizationID = "org-2"
		touched, err := nodeSnapshotter.Reconcile([]*monitor.Node{moved}, t0.Add(2*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Save(touched); err != nil {
			t.Fatal(err)
		}

		touched, err = orgSnapshotter.Reconcile([]*monitor.Organization{}, t0.Add(3*time.Hour))
		if err != nil {
			t.Fatal(err)
		}
		if len(touched) != 1 {
			t.Fatalf("organization should be archived, got %d touched snapshots", len(touched))
		}
		if touched[0].Open() {
			t.Fatal("archived snapshot should be closed")
		}
	})
}

// TestUniqueOpenSnapshot checks that the store refuses a second open-ended
// snapshot for the same entity.
func TestUniqueOpenSnapshot(t *testing.T) {
	store := NewInmemStore()

	entity := &VersionedEntity{Kind: KindNode, NaturalKey: testPublicKey('A'), DiscoveryDate: t0}
	first := &Snapshot{Entity: entity, StartDate: t0, Node: &NodeVersion{Address: "1.1.1.1:11625"}}
	second := &Snapshot{Entity: entity, StartDate: t0.Add(time.Hour), Node: &NodeVersion{Address: "2.2.2.2:11625"}}

	if err := store.Save([]*Snapshot{first}); err != nil {
		t.Fatal(err)
	}
	err := store.Save([]*Snapshot{second})
	if !cm.IsStore(err, cm.OpenSnapshotExists) {
		t.Fatalf("expected OpenSnapshotExists error, got %v", err)
	}
}

func TestNoOverlap(t *testing.T) {
	snapshotter, store := initNodeSnapshotter(t)

	addresses := []string{"1.1.1.1:11625", "2.2.2.2:11625", "3.3.3.3:11625"}
	at := t0
	for _, address := range addresses {
		node := testNode('A', address)
		node.Details = &monitor.NodeDetails{Name: address}
		touched, err := snapshotter.Reconcile([]*monitor.Node{node}, at)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Save(touched); err != nil {
			t.Fatal(err)
		}
		at = at.Add(25 * time.Hour)
	}

	history, err := store.History(KindNode, testPublicKey('A'))
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("3 versions, not %d", len(history))
	}

	open := 0
	for i, snap := range history {
		if snap.Open() {
			open++
			continue
		}
		if snap.EndDate.Before(snap.StartDate) {
			t.Fatalf("version %d ends before it starts", i)
		}
		if !history[i+1].StartDate.Equal(*snap.EndDate) {
			t.Fatalf("versions %d and %d overlap or leave a gap", i, i+1)
		}
	}
	if open != 1 {
		t.Fatalf("exactly one version should be open, got %d", open)
	}
}
