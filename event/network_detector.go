package event

import (
	"fmt"

	"github.com/quorumnet/watchtower/monitor"
	"github.com/sirupsen/logrus"
)

// Risk thresholds. A risk event fires on the cycle where the metric crosses
// from above the threshold to at or below it; it does not refire while the
// metric stays there.
const (
	NodeLivenessRiskThreshold         = 3
	NodeSafetyRiskThreshold           = 1
	OrganizationLivenessRiskThreshold = 1
	OrganizationSafetyRiskThreshold   = 1
)

// NetworkDetector compares two consecutive aggregate statistics records and
// emits network-level events: loss of liveness or safety, the four risk
// variants, and transitive quorum set changes.
type NetworkDetector struct {
	logger *logrus.Entry
}

// NewNetworkDetector ...
func NewNetworkDetector(logger *logrus.Entry) *NetworkDetector {
	return &NetworkDetector{logger: logger}
}

// Detect returns the network events for the transition from previous to
// current. When a required statistics field is undefined on either side the
// whole call fails; no partial event list is returned.
func (d *NetworkDetector) Detect(current, previous *monitor.Network) ([]Event, error) {
	cur, err := requireStatistics(current)
	if err != nil {
		return nil, err
	}
	prev, err := requireStatistics(previous)
	if err != nil {
		return nil, err
	}

	events := []Event{}
	source := NetworkSource(current.ID)
	at := current.Time

	add := func(eventType Type, data Data) {
		d.logger.WithField("type", string(eventType)).Info("Detected network event")
		events = append(events, Event{Time: at, Source: source, Type: eventType, Data: data})
	}

	if lost(*prev.MinBlockingSetFilteredSize, *cur.MinBlockingSetFilteredSize) {
		add(NetworkLossOfLiveness, ChangeData{
			From: *prev.MinBlockingSetFilteredSize,
			To:   *cur.MinBlockingSetFilteredSize,
		})
	}
	if lost(*prev.MinSplittingSetSize, *cur.MinSplittingSetSize) {
		add(NetworkLossOfSafety, ChangeData{
			From: *prev.MinSplittingSetSize,
			To:   *cur.MinSplittingSetSize,
		})
	}

	risks := []struct {
		eventType Type
		threshold int
		prev      int
		cur       int
	}{
		{NetworkNodeLivenessRisk, NodeLivenessRiskThreshold,
			*prev.MinBlockingSetFilteredSize, *cur.MinBlockingSetFilteredSize},
		{NetworkNodeSafetyRisk, NodeSafetyRiskThreshold,
			*prev.MinSplittingSetSize, *cur.MinSplittingSetSize},
		{NetworkOrganizationLivenessRisk, OrganizationLivenessRiskThreshold,
			*prev.MinBlockingSetOrgsFilteredSize, *cur.MinBlockingSetOrgsFilteredSize},
		{NetworkOrganizationSafetyRisk, OrganizationSafetyRiskThreshold,
			*prev.MinSplittingSetOrgsSize, *cur.MinSplittingSetOrgsSize},
	}
	for _, r := range risks {
		if atRisk(r.prev, r.cur, r.threshold) {
			add(r.eventType, ChangeData{From: r.prev, To: r.cur})
		}
	}

	if !prev.TransitiveQuorumSetEquals(cur) {
		add(NetworkTransitiveQuorumSetChanged, ChangeData{
			From: displayNames(previous, prev.TransitiveQuorumSet),
			To:   displayNames(current, cur.TransitiveQuorumSet),
		})
	}

	return events, nil
}

// lost reports a metric dropping to zero from a positive value.
func lost(prev, cur int) bool {
	return prev > 0 && cur == 0
}

// atRisk reports a metric crossing from above the threshold to at or below
// it, while staying positive. A drop to zero is a loss, not a risk.
func atRisk(prev, cur, threshold int) bool {
	return cur > 0 && cur <= threshold && prev > threshold
}

// requireStatistics checks that the fields the detector reads are all
// defined.
func requireStatistics(network *monitor.Network) (*monitor.NetworkStatistics, error) {
	s := network.Statistics
	if s == nil {
		return nil, fmt.Errorf("network %s at %s: no statistics", network.ID, network.Time)
	}
	missing := ""
	switch {
	case s.MinBlockingSetFilteredSize == nil:
		missing = "MinBlockingSetFilteredSize"
	case s.MinBlockingSetOrgsFilteredSize == nil:
		missing = "MinBlockingSetOrgsFilteredSize"
	case s.MinSplittingSetSize == nil:
		missing = "MinSplittingSetSize"
	case s.MinSplittingSetOrgsSize == nil:
		missing = "MinSplittingSetOrgsSize"
	}
	if missing != "" {
		return nil, fmt.Errorf("network %s at %s: statistics field %s undefined",
			network.ID, network.Time, missing)
	}
	return s, nil
}

func displayNames(network *monitor.Network, publicKeys []string) []string {
	names := make([]string, 0, len(publicKeys))
	for _, key := range publicKeys {
		names = append(names, network.NodeDisplayName(key))
	}
	return names
}
