package event

import (
	"sort"
	"time"
)

// InmemMeasurementStore implements MeasurementStore with per-source slices.
// Measurements older than the retention count are evicted, so memory use is
// bounded by the number of tracked sources.
type InmemMeasurementStore struct {
	retention int
	nodes     map[string][]NodeMeasurement
	orgs      map[string][]OrganizationMeasurement
}

// DefaultMeasurementRetention is the number of periods kept per source. It
// only needs to cover the detection window plus one.
const DefaultMeasurementRetention = 8

// NewInmemMeasurementStore ...
func NewInmemMeasurementStore(retention int) *InmemMeasurementStore {
	if retention <= 0 {
		retention = DefaultMeasurementRetention
	}
	return &InmemMeasurementStore{
		retention: retention,
		nodes:     map[string][]NodeMeasurement{},
		orgs:      map[string][]OrganizationMeasurement{},
	}
}

// AddNodeMeasurements implements the MeasurementStore interface.
func (s *InmemMeasurementStore) AddNodeMeasurements(measurements []NodeMeasurement) error {
	for _, m := range measurements {
		history := append(s.nodes[m.PublicKey], m)
		sort.Slice(history, func(i, j int) bool {
			return history[i].Time.Before(history[j].Time)
		})
		if len(history) > s.retention {
			history = history[len(history)-s.retention:]
		}
		s.nodes[m.PublicKey] = history
	}
	return nil
}

// AddOrganizationMeasurements implements the MeasurementStore interface.
func (s *InmemMeasurementStore) AddOrganizationMeasurements(measurements []OrganizationMeasurement) error {
	for _, m := range measurements {
		history := append(s.orgs[m.OrganizationID], m)
		sort.Slice(history, func(i, j int) bool {
			return history[i].Time.Before(history[j].Time)
		})
		if len(history) > s.retention {
			history = history[len(history)-s.retention:]
		}
		s.orgs[m.OrganizationID] = history
	}
	return nil
}

// NodeWindows implements the MeasurementStore interface.
func (s *InmemMeasurementStore) NodeWindows(at time.Time, window int) ([]NodeWindow, error) {
	res := []NodeWindow{}
	for publicKey, history := range s.nodes {
		recent := tail(history, at, window+1, func(m NodeMeasurement) time.Time { return m.Time })
		if recent == nil {
			continue
		}
		w := NodeWindow{PublicKey: publicKey}
		// most recent first
		for i := len(recent) - 1; i >= 0; i-- {
			m := recent[i]
			w.Active = append(w.Active, m.Active)
			w.Validating = append(w.Validating, m.Validating)
			w.HistoryUpToDate = append(w.HistoryUpToDate, m.HistoryUpToDate)
			w.HistoryOK = append(w.HistoryOK, m.HistoryOK)
			w.ConnectivityOK = append(w.ConnectivityOK, m.ConnectivityOK)
			w.CoreVersionCurrent = append(w.CoreVersionCurrent, m.CoreVersionCurrent)
		}
		res = append(res, w)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PublicKey < res[j].PublicKey })
	return res, nil
}

// OrganizationWindows implements the MeasurementStore interface.
func (s *InmemMeasurementStore) OrganizationWindows(at time.Time, window int) ([]OrganizationWindow, error) {
	res := []OrganizationWindow{}
	for id, history := range s.orgs {
		recent := tail(history, at, window+1, func(m OrganizationMeasurement) time.Time { return m.Time })
		if recent == nil {
			continue
		}
		w := OrganizationWindow{OrganizationID: id}
		for i := len(recent) - 1; i >= 0; i-- {
			m := recent[i]
			w.Available = append(w.Available, m.Available)
			w.TomlOK = append(w.TomlOK, m.TomlOK)
		}
		res = append(res, w)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].OrganizationID < res[j].OrganizationID })
	return res, nil
}

// tail returns the last n measurements at or before `at`, oldest first, or
// nil when fewer than n exist.
func tail[M any](history []M, at time.Time, n int, timeOf func(M) time.Time) []M {
	eligible := []M{}
	for _, m := range history {
		if !timeOf(m).After(at) {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) < n {
		return nil
	}
	return eligible[len(eligible)-n:]
}
