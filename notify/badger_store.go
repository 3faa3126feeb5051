package notify

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/google/uuid"
	"github.com/quorumnet/watchtower/event"
	"github.com/ugorji/go/codec"
)

const subscriberPrefix = "subscriber"

// BadgerSubscriptionStore implements SubscriptionStore with a Badger
// database behind an InmemSubscriptionStore. Reads are served from memory;
// writes and removals go through to the database.
type BadgerSubscriptionStore struct {
	inmemStore *InmemSubscriptionStore
	db         *badger.DB
	path       string
}

// NewBadgerSubscriptionStore creates a brand new store with a new database.
func NewBadgerSubscriptionStore(path string) (*BadgerSubscriptionStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = false
	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerSubscriptionStore{
		inmemStore: NewInmemSubscriptionStore(),
		db:         handle,
		path:       path,
	}, nil
}

// LoadBadgerSubscriptionStore creates a store from an existing database,
// reading all subscribers back into memory.
func LoadBadgerSubscriptionStore(path string) (*BadgerSubscriptionStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := NewBadgerSubscriptionStore(path)
	if err != nil {
		return nil, err
	}

	if err := store.load(); err != nil {
		store.db.Close()
		return nil, err
	}

	return store, nil
}

// LoadOrCreateBadgerSubscriptionStore attempts to load an existing database,
// and creates a new one when that fails.
func LoadOrCreateBadgerSubscriptionStore(path string) (*BadgerSubscriptionStore, error) {
	store, err := LoadBadgerSubscriptionStore(path)
	if err != nil {
		store, err = NewBadgerSubscriptionStore(path)
		if err != nil {
			return nil, err
		}
	}
	return store, nil
}

func subscriberKey(userID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s_%s", subscriberPrefix, userID))
}

// Find implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) Find() ([]*Subscriber, error) {
	return s.inmemStore.Find()
}

// FindByUserID implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) FindByUserID(userID uuid.UUID) (*Subscriber, error) {
	return s.inmemStore.FindByUserID(userID)
}

// FindBySubscriberRef implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) FindBySubscriberRef(ref uuid.UUID) (*Subscriber, error) {
	return s.inmemStore.FindBySubscriberRef(ref)
}

// FindByPendingSubscriptionID implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) FindByPendingSubscriptionID(pendingID uuid.UUID) (*Subscriber, error) {
	return s.inmemStore.FindByPendingSubscriptionID(pendingID)
}

// Save implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) Save(subscribers []*Subscriber) error {
	if err := s.inmemStore.Save(subscribers); err != nil {
		return err
	}
	return s.dbSetSubscribers(subscribers)
}

// Remove implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) Remove(subscriber *Subscriber) error {
	if err := s.inmemStore.Remove(subscriber); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(subscriberKey(subscriber.UserID))
	})
}

// NextPendingSubscriptionID implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) NextPendingSubscriptionID() uuid.UUID {
	return s.inmemStore.NextPendingSubscriptionID()
}

// Close implements the SubscriptionStore interface.
func (s *BadgerSubscriptionStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath returns the filepath of the underlying database.
func (s *BadgerSubscriptionStore) StorePath() string {
	return s.path
}

//==============================================================================
//DB Methods

// Storage records. UUIDs and event sources are flattened to strings so the
// encoding stays independent of their in-memory representation.

type subscriberRecord struct {
	UserID           string
	Ref              string
	RegistrationDate time.Time
	Subscriptions    []subscriptionRecord
	Pending          *pendingRecord
}

type subscriptionRecord struct {
	SourceKind       string
	SourceID         string
	SubscriptionDate time.Time
	States           []stateRecord
}

type stateRecord struct {
	EventType      string
	LatestSendTime time.Time
	Ignore         bool
}

type pendingRecord struct {
	ID          string
	SourceKinds []string
	SourceIDs   []string
	RequestDate time.Time
}

func toRecord(s *Subscriber) *subscriberRecord {
	record := &subscriberRecord{
		UserID:           s.UserID.String(),
		Ref:              s.Ref.String(),
		RegistrationDate: s.RegistrationDate,
	}
	for _, sub := range s.Subscriptions {
		subRecord := subscriptionRecord{
			SourceKind:       string(sub.Source.Kind),
			SourceID:         sub.Source.ID,
			SubscriptionDate: sub.SubscriptionDate,
		}
		for _, state := range sub.States {
			subRecord.States = append(subRecord.States, stateRecord{
				EventType:      string(state.EventType),
				LatestSendTime: state.LatestSendTime,
				Ignore:         state.IgnoreCoolOffPeriod,
			})
		}
		record.Subscriptions = append(record.Subscriptions, subRecord)
	}
	if s.Pending != nil {
		pending := &pendingRecord{
			ID:          s.Pending.ID.String(),
			RequestDate: s.Pending.RequestDate,
		}
		for _, source := range s.Pending.Sources {
			pending.SourceKinds = append(pending.SourceKinds, string(source.Kind))
			pending.SourceIDs = append(pending.SourceIDs, source.ID)
		}
		record.Pending = pending
	}
	return record
}

func fromRecord(record *subscriberRecord) (*Subscriber, error) {
	userID, err := uuid.Parse(record.UserID)
	if err != nil {
		return nil, fmt.Errorf("parsing subscriber user id: %v", err)
	}
	ref, err := uuid.Parse(record.Ref)
	if err != nil {
		return nil, fmt.Errorf("parsing subscriber ref: %v", err)
	}

	subscriber := &Subscriber{
		UserID:           userID,
		Ref:              ref,
		RegistrationDate: record.RegistrationDate,
	}
	for _, subRecord := range record.Subscriptions {
		sub := NewSubscription(event.Source{
			Kind: event.SourceKind(subRecord.SourceKind),
			ID:   subRecord.SourceID,
		}, subRecord.SubscriptionDate)
		for _, state := range subRecord.States {
			sub.States[event.Type(state.EventType)] = &EventNotificationState{
				EventType:           event.Type(state.EventType),
				LatestSendTime:      state.LatestSendTime,
				IgnoreCoolOffPeriod: state.Ignore,
			}
		}
		subscriber.Subscriptions = append(subscriber.Subscriptions, sub)
	}
	if record.Pending != nil {
		pendingID, err := uuid.Parse(record.Pending.ID)
		if err != nil {
			return nil, fmt.Errorf("parsing pending subscription id: %v", err)
		}
		pending := &PendingSubscription{
			ID:          pendingID,
			RequestDate: record.Pending.RequestDate,
		}
		for i := range record.Pending.SourceIDs {
			pending.Sources = append(pending.Sources, event.Source{
				Kind: event.SourceKind(record.Pending.SourceKinds[i]),
				ID:   record.Pending.SourceIDs[i],
			})
		}
		subscriber.Pending = pending
	}
	return subscriber, nil
}

func (s *BadgerSubscriptionStore) dbSetSubscribers(subscribers []*Subscriber) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	for _, subscriber := range subscribers {
		data, err := marshalRecord(toRecord(subscriber))
		if err != nil {
			return err
		}
		if err := tx.Set(subscriberKey(subscriber.UserID), data); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *BadgerSubscriptionStore) load() error {
	subscribers := []*Subscriber{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(subscriberPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record := new(subscriberRecord)
			if err := unmarshalRecord(val, record); err != nil {
				return err
			}
			subscriber, err := fromRecord(record)
			if err != nil {
				return err
			}
			subscribers = append(subscribers, subscriber)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.inmemStore.Save(subscribers)
}

func marshalRecord(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func unmarshalRecord(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	dec := codec.NewDecoder(b, jh)
	return dec.Decode(v)
}
