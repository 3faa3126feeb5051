package event

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWindow is the number of consecutive bad periods required before a
// per-entity event fires.
const DefaultWindow = 3

// EntityDetector runs windowed boundary-crossing detection over the boolean
// measurement history of every tracked node and organization.
//
// For each flag it looks at the last window+1 periods, most recent first. An
// event fires when exactly one period is good and it is the oldest one: the
// entity just completed `window` consecutive bad periods after having been
// good. On the next cycle the good period falls outside the window, so the
// event cannot refire while the bad streak continues.
type EntityDetector struct {
	store  MeasurementStore
	window int
	logger *logrus.Entry
}

// NewEntityDetector ...
func NewEntityDetector(store MeasurementStore, window int, logger *logrus.Entry) *EntityDetector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &EntityDetector{
		store:  store,
		window: window,
		logger: logger,
	}
}

// Detect returns the per-entity events for the cycle at time `at`.
func (d *EntityDetector) Detect(at time.Time) ([]Event, error) {
	events := []Event{}

	nodeWindows, err := d.store.NodeWindows(at, d.window)
	if err != nil {
		return nil, fmt.Errorf("querying node measurement windows: %v", err)
	}
	for _, w := range nodeWindows {
		source := NodeSource(w.PublicKey)
		events = d.append(events, at, source, NodeInactive, w.Active)
		events = d.append(events, at, source, ValidatorNotValidating, w.Validating)
		events = d.append(events, at, source, FullValidatorHistoryStale, w.HistoryUpToDate)
		events = d.append(events, at, source, NodeHistoryArchiveError, w.HistoryOK)
		events = d.append(events, at, source, NodeConnectivityError, w.ConnectivityOK)
		events = d.append(events, at, source, NodeCoreVersionBehind, w.CoreVersionCurrent)
	}

	orgWindows, err := d.store.OrganizationWindows(at, d.window)
	if err != nil {
		return nil, fmt.Errorf("querying organization measurement windows: %v", err)
	}
	for _, w := range orgWindows {
		source := OrganizationSource(w.OrganizationID)
		events = d.append(events, at, source, OrganizationUnavailable, w.Available)
		events = d.append(events, at, source, OrganizationTomlError, w.TomlOK)
	}

	return events, nil
}

func (d *EntityDetector) append(events []Event, at time.Time, source Source, eventType Type, history []bool) []Event {
	if !crossedBoundary(history, d.window) {
		return events
	}
	d.logger.WithFields(logrus.Fields{
		"source": source.String(),
		"type":   string(eventType),
	}).Info("Detected entity event")
	return append(events, Event{
		Time:   at,
		Source: source,
		Type:   eventType,
		Data:   UpdateCount{NumberOfUpdates: d.window},
	})
}

// crossedBoundary reports whether a good-state history, most recent first
// and of length window+1, sits exactly on the was-good/now-bad boundary.
func crossedBoundary(history []bool, window int) bool {
	if len(history) != window+1 {
		return false
	}
	count := 0
	for _, good := range history {
		if good {
			count++
		}
	}
	return count == 1 && history[window]
}
