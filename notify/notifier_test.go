package notify

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	cm "github.com/quorumnet/watchtower/common"
	"github.com/quorumnet/watchtower/event"
	"github.com/sirupsen/logrus"
)

// fakeSender records deliveries and fails the users it is told to fail.
type fakeSender struct {
	sync.Mutex
	failing map[uuid.UUID]bool
	sent    []uuid.UUID
}

func newFakeSender() *fakeSender {
	return &fakeSender{failing: map[uuid.UUID]bool{}}
}

func (s *fakeSender) Send(userID uuid.UUID, message *Message) error {
	s.Lock()
	defer s.Unlock()
	if s.failing[userID] {
		return fmt.Errorf("user %s unreachable", userID)
	}
	s.sent = append(s.sent, userID)
	return nil
}

func initNotifier(t *testing.T, sender MessageSender) *Notifier {
	return NewNotifier(
		NewTemplateRenderer(),
		sender,
		DefaultMaxParallelSends,
		cm.NewTestEntry(t, logrus.DebugLevel),
	)
}

func TestMatch(t *testing.T) {
	keyA := testPublicKey('A')
	keyB := testPublicKey('B')

	watchingA := testSubscriber(t, event.NodeSource(keyA))
	watchingBoth := testSubscriber(t, event.NodeSource(keyA), event.NodeSource(keyB))
	watchingNone := testSubscriber(t, event.OrganizationSource("org-1"))

	at := t0.Add(time.Hour)
	events := []event.Event{
		nodeEvent(at, keyA, event.NodeInactive),
		nodeEvent(at, keyB, event.NodeInactive),
	}

	notifier := initNotifier(t, newFakeSender())
	notifications := notifier.Match(
		[]*Subscriber{watchingA, watchingBoth, watchingNone}, events, at)

	if len(notifications) != 2 {
		t.Fatalf("2 notifications, not %d", len(notifications))
	}
	for _, notification := range notifications {
		switch notification.Subscriber {
		case watchingA:
			if len(notification.Events) != 1 {
				t.Fatalf("watchingA should get 1 event, got %d", len(notification.Events))
			}
		case watchingBoth:
			if len(notification.Events) != 2 {
				t.Fatalf("watchingBoth should get 2 events in one notification, got %d",
					len(notification.Events))
			}
		default:
			t.Fatalf("unexpected notification for %s", notification.Subscriber.Ref)
		}
	}
}

func TestSendNotifications(t *testing.T) {
	keyA := testPublicKey('A')
	sender := newFakeSender()
	notifier := initNotifier(t, sender)

	at := t0.Add(time.Hour)
	events := []event.Event{nodeEvent(at, keyA, event.NodeInactive)}

	subscribers := []*Subscriber{}
	for i := 0; i < 25; i++ {
		subscribers = append(subscribers, testSubscriber(t, event.NodeSource(keyA)))
	}

	notifications := notifier.Match(subscribers, events, at)
	result := notifier.SendNotifications(notifications)

	if len(result.Failed) != 0 {
		t.Fatalf("no failures expected, got %d", len(result.Failed))
	}
	if len(result.Successful) != 25 {
		t.Fatalf("25 successful notifications, not %d", len(result.Successful))
	}
	if len(sender.sent) != 25 {
		t.Fatalf("25 deliveries, not %d", len(sender.sent))
	}
}

// TestSendNotificationsPartialFailure checks that failures are isolated and
// that only the successful subscribers are handed back for persistence, so a
// failed subscriber's mutated cool-off state is thrown away.
func TestSendNotificationsPartialFailure(t *testing.T) {
	keyA := testPublicKey('A')
	sender := newFakeSender()
	notifier := initNotifier(t, sender)

	lucky := testSubscriber(t, event.NodeSource(keyA))
	unlucky := testSubscriber(t, event.NodeSource(keyA))
	sender.failing[unlucky.UserID] = true

	at := t0.Add(time.Hour)
	events := []event.Event{nodeEvent(at, keyA, event.NodeInactive)}

	notifications := notifier.Match([]*Subscriber{lucky, unlucky}, events, at)
	result := notifier.SendNotifications(notifications)

	if len(result.Successful) != 1 || result.Successful[0].Subscriber != lucky {
		t.Fatalf("only the lucky subscriber should succeed, got %d successes", len(result.Successful))
	}
	if len(result.Failed) != 1 || result.Failed[0].Notification.Subscriber != unlucky {
		t.Fatalf("only the unlucky subscriber should fail, got %d failures", len(result.Failed))
	}
	if result.Failed[0].Cause == nil {
		t.Fatal("the failure should carry its cause")
	}
}

func TestRenderNotification(t *testing.T) {
	keyA := testPublicKey('A')
	subscriber := testSubscriber(t, event.NodeSource(keyA))

	at := t0.Add(time.Hour)
	notification := &Notification{
		Subscriber: subscriber,
		Events:     []event.Event{nodeEvent(at, keyA, event.NodeInactive)},
		Time:       at,
	}

	message, err := NewTemplateRenderer().RenderNotification(notification)
	if err != nil {
		t.Fatal(err)
	}
	if message.Title != "1 event(s) detected" {
		t.Fatalf("wrong title %q", message.Title)
	}
	if !strings.Contains(message.Body, string(event.NodeInactive)) {
		t.Fatalf("body should name the event type:\n%s", message.Body)
	}
	if !strings.Contains(message.Body, keyA) {
		t.Fatalf("body should name the event source:\n%s", message.Body)
	}
}
