package monitor

import "time"

// NetworkStatistics are the aggregate figures computed over one scan by the
// external quorum analyzer. The minimal blocking and splitting set sizes are
// pointers because the analyzer can time out and leave them undefined; the
// network event detector refuses to run on undefined values.
type NetworkStatistics struct {
	Time time.Time

	NrOfActiveNodes         int
	NrOfValidators          int
	NrOfFullValidators      int
	NrOfActiveOrganizations int

	// MinBlockingSetFilteredSize is the size of the smallest set of nodes,
	// ignoring already-failing ones, whose failure would halt the network.
	// Zero means liveness is lost.
	MinBlockingSetFilteredSize *int

	// MinBlockingSetOrgsFilteredSize is the organization-grouped variant.
	MinBlockingSetOrgsFilteredSize *int

	// MinSplittingSetSize is the size of the smallest set of nodes whose
	// compromise could split the network. Zero means safety is lost.
	MinSplittingSetSize *int

	// MinSplittingSetOrgsSize is the organization-grouped variant.
	MinSplittingSetOrgsSize *int

	// TransitiveQuorumSet is the set of node public keys reachable from the
	// network's top tier. Order carries no meaning.
	TransitiveQuorumSet []string

	HasQuorumIntersection *bool
}

// TransitiveQuorumSetEquals compares the transitive quorum sets of two
// statistics records as unordered sets.
func (s *NetworkStatistics) TransitiveQuorumSetEquals(other *NetworkStatistics) bool {
	if len(s.TransitiveQuorumSet) != len(other.TransitiveQuorumSet) {
		return false
	}
	members := make(map[string]bool, len(s.TransitiveQuorumSet))
	for _, key := range s.TransitiveQuorumSet {
		members[key] = true
	}
	for _, key := range other.TransitiveQuorumSet {
		if !members[key] {
			return false
		}
	}
	return true
}

// Int returns a pointer to v. Convenience for building statistics records.
func Int(v int) *int {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
