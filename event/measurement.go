package event

import (
	"time"

	"github.com/quorumnet/watchtower/monitor"
)

// NodeMeasurement is one cycle's boolean health record for one node. All
// flags use good-state polarity, so every windowed detection reads the same
// way: the flag was true once, then false for the whole window.
type NodeMeasurement struct {
	Time      time.Time
	PublicKey string

	Active             bool
	Validating         bool
	HistoryUpToDate    bool
	HistoryOK          bool
	ConnectivityOK     bool
	CoreVersionCurrent bool
}

// NewNodeMeasurement maps a scanned node's flags to a measurement.
func NewNodeMeasurement(at time.Time, node *monitor.Node) NodeMeasurement {
	return NodeMeasurement{
		Time:               at,
		PublicKey:          node.PublicKey,
		Active:             node.Active,
		Validating:         node.Validating,
		HistoryUpToDate:    node.HistoryUpToDate,
		HistoryOK:          !node.HistoryError,
		ConnectivityOK:     !node.ConnectivityError,
		CoreVersionCurrent: !node.CoreVersionBehind,
	}
}

// OrganizationMeasurement is one cycle's boolean health record for one
// organization.
type OrganizationMeasurement struct {
	Time           time.Time
	OrganizationID string

	Available bool
	TomlOK    bool
}

// NewOrganizationMeasurement maps a scanned organization's flags to a
// measurement.
func NewOrganizationMeasurement(at time.Time, org *monitor.Organization) OrganizationMeasurement {
	return OrganizationMeasurement{
		Time:           at,
		OrganizationID: org.ID,
		Available:      org.Available,
		TomlOK:         !org.TomlError,
	}
}

// NodeWindow is the last window+1 periods of a node's measurements, most
// recent first, one slice per flag.
type NodeWindow struct {
	PublicKey string

	Active             []bool
	Validating         []bool
	HistoryUpToDate    []bool
	HistoryOK          []bool
	ConnectivityOK     []bool
	CoreVersionCurrent []bool
}

// OrganizationWindow is the last window+1 periods of an organization's
// measurements, most recent first.
type OrganizationWindow struct {
	OrganizationID string

	Available []bool
	TomlOK    []bool
}

// MeasurementStore persists per-cycle measurements and serves the windowed
// queries the entity detector runs on. Sources with fewer than window+1
// recorded periods at the query time are omitted: no boundary can be
// computed for them yet.
type MeasurementStore interface {
	AddNodeMeasurements(measurements []NodeMeasurement) error
	AddOrganizationMeasurements(measurements []OrganizationMeasurement) error
	NodeWindows(at time.Time, window int) ([]NodeWindow, error)
	OrganizationWindows(at time.Time, window int) ([]OrganizationWindow, error)
}
