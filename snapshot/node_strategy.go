package snapshot

import (
	"time"

	"github.com/quorumnet/watchtower/monitor"
)

// IPChangeGracePeriod is the window during which repeated ip:port changes of
// the same node are folded into its open snapshot. It caps version churn
// from flapping misconfigured nodes to one extra version per day.
const IPChangeGracePeriod = 24 * time.Hour

// NodeStrategy supplies the node-specific reconciliation rules.
type NodeStrategy struct{}

// NewNodeStrategy ...
func NewNodeStrategy() *NodeStrategy {
	return &NodeStrategy{}
}

// Kind implements the Strategy interface.
func (st *NodeStrategy) Kind() Kind {
	return KindNode
}

// NaturalKey implements the Strategy interface. A node's natural key is its
// public key.
func (st *NodeStrategy) NaturalKey(node *monitor.Node) (string, error) {
	if err := monitor.ValidatePublicKey(node.PublicKey); err != nil {
		return "", err
	}
	return node.PublicKey, nil
}

// Build implements the Strategy interface.
func (st *NodeStrategy) Build(versioned *VersionedEntity, node *monitor.Node, at time.Time) *Snapshot {
	return &Snapshot{
		Entity:    versioned,
		StartDate: at,
		Node:      nodeVersion(node),
	}
}

// BuildNext implements the Strategy interface. The replacement snapshot
// records whether the node's address was part of the change, which feeds the
// suppression rule on subsequent cycles.
func (st *NodeStrategy) BuildNext(current *Snapshot, node *monitor.Node, at time.Time) *Snapshot {
	return &Snapshot{
		Entity:    current.Entity,
		StartDate: at,
		IPChange:  current.Node.Address != node.Address,
		Node:      nodeVersion(node),
	}
}

// HasChanged implements the Strategy interface. Attribute sub-records are
// compared by content hash, not by value.
func (st *NodeStrategy) HasChanged(current *Snapshot, node *monitor.Node) bool {
	v := current.Node
	return v.Address != node.Address ||
		v.QuorumSetHash != node.QuorumSet.Hash() ||
		v.GeoHash != node.Geo.Hash() ||
		v.DetailsHash != node.Details.Hash() ||
		v.OrganizationID != node.OrganizationID
}

// Suppress implements the Strategy interface. An ip:port-only change is
// ignored when the open snapshot was itself created by an ip change less
// than IPChangeGracePeriod before `at`.
func (st *NodeStrategy) Suppress(current *Snapshot, node *monitor.Node, at time.Time) bool {
	if !st.ipOnlyChange(current, node) {
		return false
	}
	return current.IPChange && at.Sub(current.StartDate) < IPChangeGracePeriod
}

// Archivable implements the Strategy interface. A node missing from a scan
// is treated as a transient miss; node snapshots are never closed by
// reconciliation.
func (st *NodeStrategy) Archivable(current *Snapshot, at time.Time) bool {
	return false
}

func (st *NodeStrategy) ipOnlyChange(current *Snapshot, node *monitor.Node) bool {
	v := current.Node
	return v.Address != node.Address &&
		v.QuorumSetHash == node.QuorumSet.Hash() &&
		v.GeoHash == node.Geo.Hash() &&
		v.DetailsHash == node.Details.Hash() &&
		v.OrganizationID == node.OrganizationID
}

func nodeVersion(node *monitor.Node) *NodeVersion {
	return &NodeVersion{
		Address:        node.Address,
		QuorumSetHash:  node.QuorumSet.Hash(),
		QuorumSet:      node.QuorumSet,
		GeoHash:        node.Geo.Hash(),
		Geo:            node.Geo,
		DetailsHash:    node.Details.Hash(),
		Details:        node.Details,
		OrganizationID: node.OrganizationID,
	}
}
