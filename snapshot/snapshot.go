package snapshot

import (
	"fmt"
	"time"

	"github.com/quorumnet/watchtower/monitor"
)

// Kind discriminates the two families of versioned entities.
type Kind string

const (
	// KindNode ...
	KindNode Kind = "node"
	// KindOrganization ...
	KindOrganization Kind = "organization"
)

// SentinelEndDate is the far-future end date used at the storage boundary to
// represent an open-ended snapshot in a sortable column. It never leaks out
// of the stores; inside the engine an open snapshot has a nil EndDate.
var SentinelEndDate = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// VersionedEntity is the stable identity of a node or organization. It is
// created once, on first observation, and never mutated or deleted.
type VersionedEntity struct {
	Kind          Kind
	NaturalKey    string
	DiscoveryDate time.Time
}

func (e *VersionedEntity) String() string {
	return fmt.Sprintf("%s %s", e.Kind, e.NaturalKey)
}

// Snapshot is one validity interval of a versioned entity's attributes. A nil
// EndDate means the snapshot is open, ie. it describes the entity's current
// state. Once closed a snapshot is immutable.
type Snapshot struct {
	Entity *VersionedEntity

	StartDate time.Time
	EndDate   *time.Time

	// IPChange records that this snapshot was created because of an ip:port
	// change. It feeds the suppression rule that caps version churn from
	// flapping nodes.
	IPChange bool

	// Exactly one of Node and Organization is set, matching Entity.Kind.
	Node         *NodeVersion
	Organization *OrganizationVersion
}

// NodeVersion holds the versioned attributes of a node snapshot. The quorum
// set, geo and details sub-records are shared by content hash across
// snapshots; a change of hash, not of value, is what opens a new version.
type NodeVersion struct {
	Address string

	QuorumSetHash string
	QuorumSet     *monitor.QuorumSet

	GeoHash string
	Geo     *monitor.Geo

	DetailsHash string
	Details     *monitor.NodeDetails

	OrganizationID string
}

// OrganizationVersion holds the versioned attributes of an organization
// snapshot.
type OrganizationVersion struct {
	DetailsHash string

	Name        string
	HomeDomain  string
	URL         string
	Mail        string
	Description string
	Validators  []string
}

// Open reports whether the snapshot is the entity's current state.
func (s *Snapshot) Open() bool {
	return s.EndDate == nil
}

// Close ends the snapshot's validity interval at the given time. Closing an
// already closed snapshot is an invariant violation.
func (s *Snapshot) Close(at time.Time) error {
	if s.EndDate != nil {
		return fmt.Errorf("snapshot of %s already closed", s.Entity)
	}
	end := at
	s.EndDate = &end
	return nil
}

// ActiveAt reports whether the snapshot's interval covers the given time.
func (s *Snapshot) ActiveAt(at time.Time) bool {
	if at.Before(s.StartDate) {
		return false
	}
	return s.EndDate == nil || at.Before(*s.EndDate)
}
