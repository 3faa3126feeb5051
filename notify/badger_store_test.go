package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	cm "github.com/quorumnet/watchtower/common"
	"github.com/quorumnet/watchtower/event"
)

func TestLoadBadgerSubscriptionStore(t *testing.T) {
	path := t.TempDir()

	store, err := NewBadgerSubscriptionStore(path)
	if err != nil {
		t.Fatal(err)
	}

	key := testPublicKey('A')
	subscriber := testSubscriber(t, event.NodeSource(key))
	subscriber.MatchEvents([]event.Event{nodeEvent(t0.Add(time.Hour), key, event.NodeInactive)})
	subscriber.Unmute(event.NodeSource(key), event.NodeInactive)

	pending := NewSubscriber(uuid.New(), t0)
	pendingID := store.NextPendingSubscriptionID()
	pending.RequestSubscription(pendingID, []event.Source{event.OrganizationSource("org-1")}, t0)

	if err := store.Save([]*Subscriber{subscriber, pending}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadBadgerSubscriptionStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	t.Run("notification state survives a reload", func(t *testing.T) {
		found, err := loaded.FindByUserID(subscriber.UserID)
		if err != nil {
			t.Fatal(err)
		}
		if found.Ref != subscriber.Ref {
			t.Fatalf("ref should survive a reload, got %s", found.Ref)
		}
		if !found.IsSubscribedTo(event.NodeSource(key)) {
			t.Fatal("subscription should survive a reload")
		}
		state := found.Subscriptions[0].States[event.NodeInactive]
		if state == nil {
			t.Fatal("notification state should survive a reload")
		}
		if !state.LatestSendTime.Equal(t0.Add(time.Hour)) {
			t.Fatalf("send time should survive a reload, got %s", state.LatestSendTime)
		}
		if !state.IgnoreCoolOffPeriod {
			t.Fatal("pending unmute should survive a reload")
		}
	})

	t.Run("pending subscription survives a reload", func(t *testing.T) {
		found, err := loaded.FindByPendingSubscriptionID(pendingID)
		if err != nil {
			t.Fatal(err)
		}
		if found.UserID != pending.UserID {
			t.Fatalf("wrong subscriber %s", found.UserID)
		}
		if len(found.Pending.Sources) != 1 || found.Pending.Sources[0].ID != "org-1" {
			t.Fatalf("pending sources should survive a reload, got %v", found.Pending.Sources)
		}
	})
}

func TestBadgerSubscriptionStoreRemove(t *testing.T) {
	path := t.TempDir()

	store, err := NewBadgerSubscriptionStore(path)
	if err != nil {
		t.Fatal(err)
	}

	subscriber := testSubscriber(t, event.NodeSource(testPublicKey('A')))
	if err := store.Save([]*Subscriber{subscriber}); err != nil {
		t.Fatal(err)
	}
	if err := store.Remove(subscriber); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadBadgerSubscriptionStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer loaded.Close()

	if _, err := loaded.FindByUserID(subscriber.UserID); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("removal should survive a reload, got %v", err)
	}
}
