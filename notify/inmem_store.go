package notify

import (
	"sort"

	"github.com/google/uuid"
	cm "github.com/quorumnet/watchtower/common"
)

// InmemSubscriptionStore implements SubscriptionStore with a map keyed by
// user id.
type InmemSubscriptionStore struct {
	subscribers map[uuid.UUID]*Subscriber
}

// NewInmemSubscriptionStore ...
func NewInmemSubscriptionStore() *InmemSubscriptionStore {
	return &InmemSubscriptionStore{
		subscribers: map[uuid.UUID]*Subscriber{},
	}
}

// Find implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) Find() ([]*Subscriber, error) {
	res := []*Subscriber{}
	for _, subscriber := range s.subscribers {
		res = append(res, subscriber.Clone())
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].UserID.String() < res[j].UserID.String()
	})
	return res, nil
}

// FindByUserID implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) FindByUserID(userID uuid.UUID) (*Subscriber, error) {
	subscriber, ok := s.subscribers[userID]
	if !ok {
		return nil, cm.NewStoreErr("Subscriber", cm.KeyNotFound, userID.String())
	}
	return subscriber.Clone(), nil
}

// FindBySubscriberRef implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) FindBySubscriberRef(ref uuid.UUID) (*Subscriber, error) {
	for _, subscriber := range s.subscribers {
		if subscriber.Ref == ref {
			return subscriber.Clone(), nil
		}
	}
	return nil, cm.NewStoreErr("Subscriber", cm.KeyNotFound, ref.String())
}

// FindByPendingSubscriptionID implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) FindByPendingSubscriptionID(pendingID uuid.UUID) (*Subscriber, error) {
	for _, subscriber := range s.subscribers {
		if subscriber.Pending != nil && subscriber.Pending.ID == pendingID {
			return subscriber.Clone(), nil
		}
	}
	return nil, cm.NewStoreErr("Subscriber", cm.KeyNotFound, pendingID.String())
}

// Save implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) Save(subscribers []*Subscriber) error {
	for _, subscriber := range subscribers {
		s.subscribers[subscriber.UserID] = subscriber.Clone()
	}
	return nil
}

// Remove implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) Remove(subscriber *Subscriber) error {
	if _, ok := s.subscribers[subscriber.UserID]; !ok {
		return cm.NewStoreErr("Subscriber", cm.KeyNotFound, subscriber.UserID.String())
	}
	delete(s.subscribers, subscriber.UserID)
	return nil
}

// NextPendingSubscriptionID implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) NextPendingSubscriptionID() uuid.UUID {
	return uuid.New()
}

// Close implements the SubscriptionStore interface.
func (s *InmemSubscriptionStore) Close() error {
	return nil
}
