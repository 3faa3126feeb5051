package notify

import "github.com/google/uuid"

// SubscriptionStore is an interface for subscriber backend stores.
// Implementations hand out and accept deep copies: a subscriber mutated in
// memory only becomes visible to later finds once it was saved.
type SubscriptionStore interface {
	// Find returns all subscribers.
	Find() ([]*Subscriber, error)
	// FindByUserID returns the subscriber with the given user id, or a
	// KeyNotFound store error.
	FindByUserID(userID uuid.UUID) (*Subscriber, error)
	// FindBySubscriberRef returns the subscriber with the given public
	// reference, or a KeyNotFound store error.
	FindBySubscriberRef(ref uuid.UUID) (*Subscriber, error)
	// FindByPendingSubscriptionID returns the subscriber holding the given
	// unconfirmed subscription id, or a KeyNotFound store error.
	FindByPendingSubscriptionID(pendingID uuid.UUID) (*Subscriber, error)
	// Save persists the given subscribers.
	Save(subscribers []*Subscriber) error
	// Remove deletes a subscriber.
	Remove(subscriber *Subscriber) error
	// NextPendingSubscriptionID returns a fresh single-use confirmation id.
	NextPendingSubscriptionID() uuid.UUID
	// Close closes the underlying database.
	Close() error
}
