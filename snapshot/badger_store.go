package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/ugorji/go/codec"
)

const (
	entityPrefix   = "entity"
	snapshotPrefix = "snapshot"
)

// BadgerStore implements the Store interface with a Badger database behind
// an InmemStore. All reads are served from memory; writes go through to the
// database so that the full snapshot history survives restarts.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
}

// NewBadgerStore creates a brand new BadgerStore with a new database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = false
	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{
		inmemStore: NewInmemStore(),
		db:         handle,
		path:       path,
	}, nil
}

// LoadBadgerStore creates a BadgerStore from an existing database, reading
// the entire snapshot history back into the InmemStore.
func LoadBadgerStore(path string) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := NewBadgerStore(path)
	if err != nil {
		return nil, err
	}

	if err := store.load(); err != nil {
		store.db.Close()
		return nil, err
	}

	return store, nil
}

// LoadOrCreateBadgerStore attempts to load an existing database, and creates
// a new one when that fails.
func LoadOrCreateBadgerStore(path string) (*BadgerStore, error) {
	store, err := LoadBadgerStore(path)
	if err != nil {
		store, err = NewBadgerStore(path)
		if err != nil {
			return nil, err
		}
	}
	return store, nil
}

//==============================================================================
//Keys

func entityKey(kind Kind, naturalKey string) []byte {
	return []byte(fmt.Sprintf("%s_%s_%s", entityPrefix, kind, naturalKey))
}

func snapshotKey(kind Kind, naturalKey string, start time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%s_%s_%020d", snapshotPrefix, kind, naturalKey, start.UnixNano()))
}

//==============================================================================
//Implement the Store interface

// Entity implements the Store interface.
func (s *BadgerStore) Entity(kind Kind, naturalKey string) (*VersionedEntity, error) {
	return s.inmemStore.Entity(kind, naturalKey)
}

// Active implements the Store interface.
func (s *BadgerStore) Active(kind Kind) ([]*Snapshot, error) {
	return s.inmemStore.Active(kind)
}

// ActiveAt implements the Store interface.
func (s *BadgerStore) ActiveAt(kind Kind, at time.Time) ([]*Snapshot, error) {
	return s.inmemStore.ActiveAt(kind, at)
}

// History implements the Store interface.
func (s *BadgerStore) History(kind Kind, naturalKey string) ([]*Snapshot, error) {
	return s.inmemStore.History(kind, naturalKey)
}

// Save implements the Store interface. The snapshots are saved in memory
// first, where the unique-open-snapshot invariant is enforced, then written
// through to the database in one transaction.
func (s *BadgerStore) Save(snapshots []*Snapshot) error {
	if err := s.inmemStore.Save(snapshots); err != nil {
		return err
	}
	return s.dbSetSnapshots(snapshots)
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath returns the filepath of the underlying database.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//==============================================================================
//DB Methods

// snapshotRecord is the storage shape of a Snapshot. The open end date is
// stored as the far-future sentinel so the column stays sortable.
type snapshotRecord struct {
	Kind       Kind
	NaturalKey string
	Discovery  time.Time
	StartDate  time.Time
	EndDate    time.Time
	IPChange   bool
	Node       *NodeVersion
	Org        *OrganizationVersion
}

func (s *BadgerStore) dbSetSnapshots(snapshots []*Snapshot) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	for _, snap := range snapshots {
		record := &snapshotRecord{
			Kind:       snap.Entity.Kind,
			NaturalKey: snap.Entity.NaturalKey,
			Discovery:  snap.Entity.DiscoveryDate,
			StartDate:  snap.StartDate,
			EndDate:    SentinelEndDate,
			IPChange:   snap.IPChange,
			Node:       snap.Node,
			Org:        snap.Organization,
		}
		if snap.EndDate != nil {
			record.EndDate = *snap.EndDate
		}

		data, err := marshalRecord(record)
		if err != nil {
			return err
		}

		key := snapshotKey(record.Kind, record.NaturalKey, record.StartDate)
		if err := tx.Set(key, data); err != nil {
			return err
		}

		entityData, err := marshalRecord(snap.Entity)
		if err != nil {
			return err
		}
		if err := tx.Set(entityKey(record.Kind, record.NaturalKey), entityData); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// load reads every entity and snapshot record back into the InmemStore.
func (s *BadgerStore) load() error {
	entities := map[string]*VersionedEntity{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(entityPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entity := new(VersionedEntity)
			if err := unmarshalRecord(val, entity); err != nil {
				return err
			}
			entities[string(entityKey(entity.Kind, entity.NaturalKey))] = entity
		}
		return nil
	})
	if err != nil {
		return err
	}

	snapshots := []*Snapshot{}
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(snapshotPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			record := new(snapshotRecord)
			if err := unmarshalRecord(val, record); err != nil {
				return err
			}

			entity := entities[string(entityKey(record.Kind, record.NaturalKey))]
			if entity == nil {
				return fmt.Errorf("snapshot of unknown entity %s %s", record.Kind, record.NaturalKey)
			}

			snap := &Snapshot{
				Entity:       entity,
				StartDate:    record.StartDate,
				IPChange:     record.IPChange,
				Node:         record.Node,
				Organization: record.Org,
			}
			if !record.EndDate.Equal(SentinelEndDate) {
				end := record.EndDate
				snap.EndDate = &end
			}
			snapshots = append(snapshots, snap)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.inmemStore.Save(snapshots)
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
