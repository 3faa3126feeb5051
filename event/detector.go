package event

import (
	"github.com/quorumnet/watchtower/monitor"
	"github.com/sirupsen/logrus"
)

// Detector composes the network-level and per-entity detectors. The two
// event lists are independent; their concatenation order carries no meaning.
type Detector struct {
	network *NetworkDetector
	entity  *EntityDetector
}

// NewDetector ...
func NewDetector(store MeasurementStore, window int, logger *logrus.Entry) *Detector {
	return &Detector{
		network: NewNetworkDetector(logger),
		entity:  NewEntityDetector(store, window, logger),
	}
}

// Detect returns all events for the transition from previous to current. A
// failing network detection fails the whole call; no partial list is
// returned.
func (d *Detector) Detect(current, previous *monitor.Network) ([]Event, error) {
	networkEvents, err := d.network.Detect(current, previous)
	if err != nil {
		return nil, err
	}

	entityEvents, err := d.entity.Detect(current.Time)
	if err != nil {
		return nil, err
	}

	return append(networkEvents, entityEvents...), nil
}
