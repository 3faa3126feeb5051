package event

import (
	"fmt"
	"strings"
	"time"
)

// Type enumerates the domain events the detector can produce. The set is
// closed; notification state is keyed by these values, so renaming one is a
// breaking change for persisted subscribers.
type Type string

const (
	// NodeInactive fires when a node has been down for the full detection
	// window after having been up.
	NodeInactive Type = "NodeInactive"
	// ValidatorNotValidating ...
	ValidatorNotValidating Type = "ValidatorNotValidating"
	// FullValidatorHistoryStale fires when a full validator's history
	// archive has been out of date for the full detection window.
	FullValidatorHistoryStale Type = "FullValidatorHistoryArchiveStale"
	// NodeHistoryArchiveError ...
	NodeHistoryArchiveError Type = "NodeHistoryArchiveError"
	// NodeConnectivityError ...
	NodeConnectivityError Type = "NodeConnectivityError"
	// NodeCoreVersionBehind fires when a node has been running an outdated
	// core version for the full detection window.
	NodeCoreVersionBehind Type = "NodeCoreVersionBehind"
	// OrganizationUnavailable fires when an organization has been without a
	// validating subquorum for the full detection window.
	OrganizationUnavailable Type = "OrganizationUnavailable"
	// OrganizationTomlError ...
	OrganizationTomlError Type = "OrganizationTomlError"
	// NetworkTransitiveQuorumSetChanged ...
	NetworkTransitiveQuorumSetChanged Type = "NetworkTransitiveQuorumSetChanged"
	// NetworkNodeLivenessRisk ...
	NetworkNodeLivenessRisk Type = "NetworkNodeLivenessRisk"
	// NetworkNodeSafetyRisk ...
	NetworkNodeSafetyRisk Type = "NetworkNodeSafetyRisk"
	// NetworkOrganizationLivenessRisk ...
	NetworkOrganizationLivenessRisk Type = "NetworkOrganizationLivenessRisk"
	// NetworkOrganizationSafetyRisk ...
	NetworkOrganizationSafetyRisk Type = "NetworkOrganizationSafetyRisk"
	// NetworkLossOfLiveness ...
	NetworkLossOfLiveness Type = "NetworkLossOfLiveness"
	// NetworkLossOfSafety ...
	NetworkLossOfSafety Type = "NetworkLossOfSafety"
)

// SourceKind discriminates the closed set of things an event can be about.
type SourceKind string

const (
	// SourceNode ...
	SourceNode SourceKind = "node"
	// SourceOrganization ...
	SourceOrganization SourceKind = "organization"
	// SourceNetwork ...
	SourceNetwork SourceKind = "network"
)

// Source identifies what an event is about: a node by public key, an
// organization by id, or the network itself. It is a small value type with
// plain equality; subscriptions match events by comparing sources.
type Source struct {
	Kind SourceKind
	ID   string
}

// NodeSource ...
func NodeSource(publicKey string) Source {
	return Source{Kind: SourceNode, ID: publicKey}
}

// OrganizationSource ...
func OrganizationSource(id string) Source {
	return Source{Kind: SourceOrganization, ID: id}
}

// NetworkSource ...
func NetworkSource(id string) Source {
	return Source{Kind: SourceNetwork, ID: id}
}

func (s Source) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// Data is the payload of an event: either a from/to change pair or an
// update count. Its String form is what subscribers see in notifications.
type Data interface {
	String() string
}

// ChangeData carries the before and after values of a threshold or set
// change.
type ChangeData struct {
	From interface{}
	To   interface{}
}

func (d ChangeData) String() string {
	return fmt.Sprintf("changed from %s to %s", format(d.From), format(d.To))
}

// UpdateCount carries the number of consecutive periods a condition held.
type UpdateCount struct {
	NumberOfUpdates int
}

func (d UpdateCount) String() string {
	return fmt.Sprintf("%d consecutive updates", d.NumberOfUpdates)
}

func format(v interface{}) string {
	switch t := v.(type) {
	case []string:
		return "[" + strings.Join(t, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Event is an ephemeral, timestamped domain event. Events are never
// persisted; only their effect on notification state is.
type Event struct {
	Time   time.Time
	Source Source
	Type   Type
	Data   Data
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.Time.Format(time.RFC3339), e.Source, e.Type)
}
