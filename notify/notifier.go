package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/quorumnet/watchtower/event"
	"github.com/sirupsen/logrus"
)

// DefaultMaxParallelSends is the fixed size of the dispatch worker pool.
const DefaultMaxParallelSends = 10

// Notification bundles all of one subscriber's matched events for one cycle.
type Notification struct {
	Subscriber *Subscriber
	Events     []event.Event
	Time       time.Time
}

// SendFailure pairs a notification with the error that failed it.
type SendFailure struct {
	Notification *Notification
	Cause        error
}

// SendResult is the per-notification outcome of one dispatch run.
type SendResult struct {
	Successful []*Notification
	Failed     []SendFailure
}

// Notifier matches detected events against subscribers and dispatches the
// resulting notifications with bounded concurrency.
type Notifier struct {
	renderer    MessageRenderer
	sender      MessageSender
	maxParallel int
	logger      *logrus.Entry
}

// NewNotifier ...
func NewNotifier(renderer MessageRenderer, sender MessageSender, maxParallel int, logger *logrus.Entry) *Notifier {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallelSends
	}
	return &Notifier{
		renderer:    renderer,
		sender:      sender,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Match builds zero or one notification per subscriber from a batch of
// events, applying the cool-off policy. Matching mutates the subscribers'
// in-memory notification state; the caller must only persist the
// subscribers whose notification was actually delivered.
func (n *Notifier) Match(subscribers []*Subscriber, events []event.Event, at time.Time) []*Notification {
	notifications := []*Notification{}
	for _, subscriber := range subscribers {
		matched := subscriber.MatchEvents(events)
		if len(matched) == 0 {
			continue
		}
		notifications = append(notifications, &Notification{
			Subscriber: subscriber,
			Events:     matched,
			Time:       at,
		})
	}
	return notifications
}

// SendNotifications renders and sends every notification through a fixed
// pool of workers, blocking until all of them are done. Each notification
// succeeds or fails independently; a failure never aborts its siblings and
// nothing is retried here.
func (n *Notifier) SendNotifications(notifications []*Notification) *SendResult {
	jobs := make(chan *Notification, len(notifications))
	outcomes := make(chan SendFailure, len(notifications))

	var wg sync.WaitGroup
	for i := 0; i < n.maxParallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for notification := range jobs {
				outcomes <- SendFailure{
					Notification: notification,
					Cause:        n.send(notification),
				}
			}
		}()
	}

	for _, notification := range notifications {
		jobs <- notification
	}
	close(jobs)
	wg.Wait()
	close(outcomes)

	result := &SendResult{}
	for outcome := range outcomes {
		if outcome.Cause == nil {
			result.Successful = append(result.Successful, outcome.Notification)
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"subscriber": outcome.Notification.Subscriber.Ref,
			"error":      outcome.Cause,
		}).Warn("Notification failed")
		result.Failed = append(result.Failed, outcome)
	}
	return result
}

func (n *Notifier) send(notification *Notification) error {
	message, err := n.renderer.RenderNotification(notification)
	if err != nil {
		return fmt.Errorf("rendering notification for %s: %v", notification.Subscriber.Ref, err)
	}
	if err := n.sender.Send(notification.Subscriber.UserID, message); err != nil {
		return fmt.Errorf("sending notification to %s: %v", notification.Subscriber.Ref, err)
	}
	return nil
}
