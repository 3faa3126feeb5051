package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quorumnet/watchtower/event"
)

// CoolOffPeriod is the debounce window per (subscription, event type). After
// a delivered notification, further events of the same type and source are
// muted until the window has passed.
const CoolOffPeriod = 24 * time.Hour

// EventNotificationState is the per (subscription, event type) bookkeeping
// record. It is created lazily on the first delivered event of a type, and
// only ever updated when a notification of that type is actually delivered;
// muted events leave it untouched.
type EventNotificationState struct {
	EventType      event.Type
	LatestSendTime time.Time

	// IgnoreCoolOffPeriod is set by an explicit unmute action and consumed
	// by the next delivery.
	IgnoreCoolOffPeriod bool
}

// Subscription is one event source being watched by one subscriber.
type Subscription struct {
	Source           event.Source
	SubscriptionDate time.Time
	States           map[event.Type]*EventNotificationState
}

// NewSubscription ...
func NewSubscription(source event.Source, at time.Time) *Subscription {
	return &Subscription{
		Source:           source,
		SubscriptionDate: at,
		States:           map[event.Type]*EventNotificationState{},
	}
}

// Muted reports whether the event falls inside the cool-off window of its
// type. A type without prior state is never muted, and neither is a type
// that was explicitly unmuted.
func (s *Subscription) Muted(e event.Event) bool {
	state, ok := s.States[e.Type]
	if !ok {
		return false
	}
	if state.IgnoreCoolOffPeriod {
		return false
	}
	return !e.Time.After(state.LatestSendTime.Add(CoolOffPeriod))
}

// MarkDelivered records a delivery, starting a fresh cool-off window and
// consuming a pending unmute.
func (s *Subscription) MarkDelivered(e event.Event) {
	state, ok := s.States[e.Type]
	if !ok {
		state = &EventNotificationState{EventType: e.Type}
		s.States[e.Type] = state
	}
	state.LatestSendTime = e.Time
	state.IgnoreCoolOffPeriod = false
}

// Unmute lifts the cool-off window for one event type, once. It is a no-op
// for types that never had a delivery.
func (s *Subscription) Unmute(eventType event.Type) {
	if state, ok := s.States[eventType]; ok {
		state.IgnoreCoolOffPeriod = true
	}
}

// PendingSubscription is the double-opt-in staging record: an unconfirmed
// event-source list behind a single-use confirmation id.
type PendingSubscription struct {
	ID          uuid.UUID
	Sources     []event.Source
	RequestDate time.Time
}

// Subscriber is a registered user with their subscriptions. Subscriptions
// exclusively own their notification states; there are no back-pointers.
type Subscriber struct {
	// UserID identifies the account at the external messaging service.
	UserID uuid.UUID

	// Ref is the public reference used in unsubscribe links, so the UserID
	// never leaves the system.
	Ref uuid.UUID

	RegistrationDate time.Time
	Subscriptions    []*Subscription
	Pending          *PendingSubscription
}

// NewSubscriber registers a subscriber with a fresh public reference and no
// subscriptions.
func NewSubscriber(userID uuid.UUID, at time.Time) *Subscriber {
	return &Subscriber{
		UserID:           userID,
		Ref:              uuid.New(),
		RegistrationDate: at,
	}
}

// RequestSubscription stages a new event-source list behind a confirmation
// id. A previous pending request is replaced.
func (s *Subscriber) RequestSubscription(pendingID uuid.UUID, sources []event.Source, at time.Time) {
	s.Pending = &PendingSubscription{
		ID:          pendingID,
		Sources:     append([]event.Source{}, sources...),
		RequestDate: at,
	}
}

// ConfirmPendingSubscription consumes the pending request with the given id
// and atomically replaces all prior subscriptions with its sources.
func (s *Subscriber) ConfirmPendingSubscription(pendingID uuid.UUID, at time.Time) error {
	if s.Pending == nil {
		return fmt.Errorf("subscriber %s: no pending subscription", s.Ref)
	}
	if s.Pending.ID != pendingID {
		return fmt.Errorf("subscriber %s: unknown pending subscription id %s", s.Ref, pendingID)
	}

	subscriptions := []*Subscription{}
	for _, source := range s.Pending.Sources {
		subscriptions = append(subscriptions, NewSubscription(source, at))
	}
	s.Subscriptions = subscriptions
	s.Pending = nil
	return nil
}

// IsSubscribedTo ...
func (s *Subscriber) IsSubscribedTo(source event.Source) bool {
	return s.subscription(source) != nil
}

// Unmute lifts the cool-off window for one (source, event type) pair.
func (s *Subscriber) Unmute(source event.Source, eventType event.Type) {
	if sub := s.subscription(source); sub != nil {
		sub.Unmute(eventType)
	}
}

// MatchEvents returns the non-muted events among those matching one of the
// subscriber's subscriptions, and records them as delivered. The caller only
// persists the mutated state when the notification actually went out.
func (s *Subscriber) MatchEvents(events []event.Event) []event.Event {
	matched := []event.Event{}
	for _, e := range events {
		sub := s.subscription(e.Source)
		if sub == nil || sub.Muted(e) {
			continue
		}
		sub.MarkDelivered(e)
		matched = append(matched, e)
	}
	return matched
}

// Clone returns a deep copy. Stores hand out and accept clones so that
// unsaved mutations never leak into the persisted state.
func (s *Subscriber) Clone() *Subscriber {
	clone := &Subscriber{
		UserID:           s.UserID,
		Ref:              s.Ref,
		RegistrationDate: s.RegistrationDate,
	}
	for _, sub := range s.Subscriptions {
		subClone := NewSubscription(sub.Source, sub.SubscriptionDate)
		for eventType, state := range sub.States {
			stateCopy := *state
			subClone.States[eventType] = &stateCopy
		}
		clone.Subscriptions = append(clone.Subscriptions, subClone)
	}
	if s.Pending != nil {
		clone.Pending = &PendingSubscription{
			ID:          s.Pending.ID,
			Sources:     append([]event.Source{}, s.Pending.Sources...),
			RequestDate: s.Pending.RequestDate,
		}
	}
	return clone
}

func (s *Subscriber) subscription(source event.Source) *Subscription {
	for _, sub := range s.Subscriptions {
		if sub.Source == source {
			return sub
		}
	}
	return nil
}
