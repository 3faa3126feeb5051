package event

import (
	"reflect"
	"testing"
	"time"
)

func TestMeasurementStoreWindows(t *testing.T) {
	store := NewInmemMeasurementStore(DefaultMeasurementRetention)

	key := testPublicKey('A')
	active := []bool{true, true, false, false}
	at := t0
	for _, a := range active {
		err := store.AddNodeMeasurements([]NodeMeasurement{{
			Time:      at,
			PublicKey: key,
			Active:    a,
		}})
		if err != nil {
			t.Fatal(err)
		}
		at = at.Add(3 * time.Minute)
	}

	windows, err := store.NodeWindows(at, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 1 {
		t.Fatalf("1 window, not %d", len(windows))
	}

	// most recent first
	expected := []bool{false, false, true, true}
	if !reflect.DeepEqual(windows[0].Active, expected) {
		t.Fatalf("window should be %v, not %v", expected, windows[0].Active)
	}
}

// TestMeasurementStoreShortHistory checks that sources without a full
// window+1 history are omitted rather than padded.
func TestMeasurementStoreShortHistory(t *testing.T) {
	store := NewInmemMeasurementStore(DefaultMeasurementRetention)

	err := store.AddNodeMeasurements([]NodeMeasurement{
		{Time: t0, PublicKey: testPublicKey('A'), Active: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	windows, err := store.NodeWindows(t0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 0 {
		t.Fatalf("short history should be omitted, got %d windows", len(windows))
	}
}

// TestMeasurementStoreWindowAt checks that measurements after the query time
// are excluded, so re-running a past detection sees the same window.
func TestMeasurementStoreWindowAt(t *testing.T) {
	store := NewInmemMeasurementStore(DefaultMeasurementRetention)

	key := testPublicKey('A')
	var cutoff time.Time
	at := t0
	for i := 0; i < 6; i++ {
		err := store.AddNodeMeasurements([]NodeMeasurement{{
			Time:      at,
			PublicKey: key,
			Active:    i < 4,
		}})
		if err != nil {
			t.Fatal(err)
		}
		if i == 3 {
			cutoff = at
		}
		at = at.Add(3 * time.Minute)
	}

	windows, err := store.NodeWindows(cutoff, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 1 {
		t.Fatalf("1 window, not %d", len(windows))
	}
	expected := []bool{true, true, true, true}
	if !reflect.DeepEqual(windows[0].Active, expected) {
		t.Fatalf("window at %s should be %v, not %v", cutoff, expected, windows[0].Active)
	}
}

func TestMeasurementStoreRetention(t *testing.T) {
	store := NewInmemMeasurementStore(4)

	key := testPublicKey('A')
	at := t0
	for i := 0; i < 10; i++ {
		err := store.AddNodeMeasurements([]NodeMeasurement{{
			Time:      at,
			PublicKey: key,
			Active:    true,
		}})
		if err != nil {
			t.Fatal(err)
		}
		at = at.Add(3 * time.Minute)
	}

	if got := len(store.nodes[key]); got != 4 {
		t.Fatalf("retention should cap the history at 4, got %d", got)
	}
}

func TestMeasurementStoreOrganizations(t *testing.T) {
	store := NewInmemMeasurementStore(DefaultMeasurementRetention)

	at := t0
	for i := 0; i < 4; i++ {
		err := store.AddOrganizationMeasurements([]OrganizationMeasurement{{
			Time:           at,
			OrganizationID: "org-1",
			Available:      i == 0,
			TomlOK:         true,
		}})
		if err != nil {
			t.Fatal(err)
		}
		at = at.Add(3 * time.Minute)
	}

	windows, err := store.OrganizationWindows(at, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(windows) != 1 {
		t.Fatalf("1 window, not %d", len(windows))
	}
	if !reflect.DeepEqual(windows[0].Available, []bool{false, false, false, true}) {
		t.Fatalf("wrong availability window %v", windows[0].Available)
	}
	if !reflect.DeepEqual(windows[0].TomlOK, []bool{true, true, true, true}) {
		t.Fatalf("wrong toml window %v", windows[0].TomlOK)
	}
}
