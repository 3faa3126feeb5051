package scanner

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quorumnet/watchtower/event"
	"github.com/quorumnet/watchtower/monitor"
	"github.com/quorumnet/watchtower/notify"
	"github.com/quorumnet/watchtower/snapshot"
	"github.com/sirupsen/logrus"
)

// Scanner orchestrates the monitoring pipeline. Each cycle it pulls a fresh
// scan from the provider, reconciles node and organization snapshots,
// persists measurements, detects events and notifies subscribers. Cycles
// never overlap; concurrency only appears inside the notifier's dispatch
// pool.
type Scanner struct {
	state

	conf   *Config
	logger *logrus.Entry

	provider NetworkProvider

	snapshots       snapshot.Store
	nodeSnapshotter *snapshot.Snapshotter[*monitor.Node]
	orgSnapshotter  *snapshot.Snapshotter[*monitor.Organization]
	measurements    event.MeasurementStore
	detector        *event.Detector
	notifier        *notify.Notifier
	subscriptions   notify.SubscriptionStore

	// previous is the last fully persisted scan, used as the baseline for
	// threshold detection.
	previous *monitor.Network

	controlTimer *ControlTimer

	sigintCh   chan os.Signal
	shutdownCh chan struct{}
}

// NewScanner wires the pipeline together.
func NewScanner(
	conf *Config,
	provider NetworkProvider,
	snapshots snapshot.Store,
	measurements event.MeasurementStore,
	subscriptions notify.SubscriptionStore,
	renderer notify.MessageRenderer,
	sender notify.MessageSender,
) *Scanner {
	logger := conf.Logger

	sigintCh := make(chan os.Signal, 1)
	signal.Notify(sigintCh, os.Interrupt, syscall.SIGINT)

	return &Scanner{
		conf:            conf,
		logger:          logger,
		provider:        provider,
		snapshots:       snapshots,
		nodeSnapshotter: snapshot.NewSnapshotter[*monitor.Node](snapshots, snapshot.NewNodeStrategy(), logger),
		orgSnapshotter: snapshot.NewSnapshotter[*monitor.Organization](
			snapshots, snapshot.NewOrganizationStrategy(snapshots), logger),
		measurements:  measurements,
		detector:      event.NewDetector(measurements, conf.DetectionWindow, logger),
		notifier:      notify.NewNotifier(renderer, sender, conf.MaxParallelSends, logger),
		subscriptions: subscriptions,
		controlTimer:  NewPeriodicControlTimer(),
		sigintCh:      sigintCh,
		shutdownCh:    make(chan struct{}),
	}
}

// Run invokes the cycle loop. It returns after Shutdown.
func (s *Scanner) Run() {
	go s.controlTimer.Run(s.conf.ScanInterval)

	for {
		select {
		case <-s.controlTimer.tickCh:
			if state := s.getState(); state != Idle {
				s.logger.WithField("state", state.String()).Warn("Cycle overrun, refusing new cycle")
				continue
			}
			s.goFunc(func() {
				if err := s.RunCycle(time.Now().UTC()); err != nil {
					s.logger.WithError(err).Error("Cycle failed")
				}
			})
		case <-s.sigintCh:
			s.logger.Debug("Reacting to SIGINT - Shutdown")
			s.Shutdown()
		case <-s.shutdownCh:
			return
		}
	}
}

// RunAsync calls Run in a separate routine.
func (s *Scanner) RunAsync() {
	go s.Run()
}

// RunCycle executes one full reconciliation cycle at time `at`. It refuses
// to run while another cycle is in flight.
func (s *Scanner) RunCycle(at time.Time) error {
	if state := s.getState(); state != Idle {
		return fmt.Errorf("scanner is %s, refusing new cycle", state)
	}
	s.setState(Updating)
	defer func() {
		if s.getState() != Shutdown {
			s.setState(Idle)
		}
	}()

	current, err := s.provider.Scan(s.previous)
	if err != nil {
		return fmt.Errorf("scanning network: %v", err)
	}
	if current.Time.IsZero() {
		current.Time = at
	}

	s.logger.WithFields(logrus.Fields{
		"time":          current.Time,
		"nodes":         len(current.Nodes),
		"organizations": len(current.Organizations),
	}).Info("Starting cycle")

	touched, err := s.reconcile(current)
	if err != nil {
		return err
	}
	if err := s.snapshots.Save(touched); err != nil {
		return fmt.Errorf("saving snapshots: %v", err)
	}

	if err := s.recordMeasurements(current); err != nil {
		return err
	}

	// The baseline only advances once the cycle's state is persisted, so a
	// failed cycle is retried against the same baseline.
	previous := s.previous
	s.previous = current

	if previous == nil {
		s.logger.Debug("First cycle, no baseline to detect against")
		return nil
	}

	events, err := s.detector.Detect(current, previous)
	if err != nil {
		return fmt.Errorf("detecting events: %v", err)
	}
	if len(events) == 0 {
		return nil
	}

	subscribers, err := s.subscriptions.Find()
	if err != nil {
		return fmt.Errorf("loading subscribers: %v", err)
	}

	notifications := s.notifier.Match(subscribers, events, current.Time)
	if len(notifications) == 0 {
		return nil
	}

	s.setState(Persisting)

	result := s.notifier.SendNotifications(notifications)

	successful := make([]*notify.Subscriber, 0, len(result.Successful))
	for _, notification := range result.Successful {
		successful = append(successful, notification.Subscriber)
	}
	if err := s.subscriptions.Save(successful); err != nil {
		return fmt.Errorf("saving subscribers: %v", err)
	}

	s.logger.WithFields(logrus.Fields{
		"events": len(events),
		"sent":   len(result.Successful),
		"failed": len(result.Failed),
	}).Info("Cycle complete")

	return nil
}

// Shutdown stops the cycle loop gracefully: a cycle in its persisting phase
// is allowed to finish before the loop exits. Partial snapshot or
// notification writes are not rolled back; each unit of work is
// independently atomic.
func (s *Scanner) Shutdown() {
	if s.getState() == Shutdown {
		return
	}

	s.logger.Debug("Shutdown")

	for s.getState() == Persisting {
		time.Sleep(10 * time.Millisecond)
	}

	s.setState(Shutdown)
	s.waitRoutines()
	s.controlTimer.Shutdown()
	close(s.shutdownCh)
}

// Previous returns the last fully persisted scan.
func (s *Scanner) Previous() *monitor.Network {
	return s.previous
}

func (s *Scanner) reconcile(current *monitor.Network) ([]*snapshot.Snapshot, error) {
	touchedNodes, err := s.nodeSnapshotter.Reconcile(current.Nodes, current.Time)
	if err != nil {
		return nil, fmt.Errorf("reconciling nodes: %v", err)
	}

	touchedOrgs, err := s.orgSnapshotter.Reconcile(current.Organizations, current.Time)
	if err != nil {
		return nil, fmt.Errorf("reconciling organizations: %v", err)
	}

	return append(touchedNodes, touchedOrgs...), nil
}

func (s *Scanner) recordMeasurements(current *monitor.Network) error {
	nodeMeasurements := make([]event.NodeMeasurement, 0, len(current.Nodes))
	for _, node := range current.Nodes {
		nodeMeasurements = append(nodeMeasurements, event.NewNodeMeasurement(current.Time, node))
	}
	if err := s.measurements.AddNodeMeasurements(nodeMeasurements); err != nil {
		return fmt.Errorf("saving node measurements: %v", err)
	}

	orgMeasurements := make([]event.OrganizationMeasurement, 0, len(current.Organizations))
	for _, org := range current.Organizations {
		orgMeasurements = append(orgMeasurements, event.NewOrganizationMeasurement(current.Time, org))
	}
	if err := s.measurements.AddOrganizationMeasurements(orgMeasurements); err != nil {
		return fmt.Errorf("saving organization measurements: %v", err)
	}

	return nil
}
