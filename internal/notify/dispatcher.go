package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/metrics"
)

// Dispatcher fans events out to every registered channel from a fixed pool
// of workers. Dispatch never blocks the caller and channel failures never
// propagate back to it: the request that produced the event has already
// succeeded. Outcomes are observable through logs and metrics only.
type Dispatcher struct {
	channels []Channel
	jobs     chan Event
	log      *zap.Logger
	metrics  *metrics.Metrics

	sendTimeout time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func NewDispatcher(channels []Channel, queueSize, workers int, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if workers <= 0 {
		workers = 4
	}
	d := &Dispatcher{
		channels:    channels,
		jobs:        make(chan Event, queueSize),
		log:         log,
		metrics:     m,
		sendTimeout: 30 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch enqueues the event for delivery. When the queue is full the
// event is dropped: delivery is best-effort and must not stall checkout.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.jobs <- ev:
	default:
		d.metrics.NotificationsDropped.Inc()
		d.log.Error("notification queue full, dropping event",
			zap.String("kind", string(ev.Kind)),
			zap.String("order", ev.HumanID),
		)
	}
}

// Close stops accepting events and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.jobs {
		d.deliver(ev)
	}
}

// deliver attempts every channel in parallel so a slow provider cannot
// starve the others.
func (d *Dispatcher) deliver(ev Event) {
	var wg sync.WaitGroup
	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
			defer cancel()

			msg := Render(ev, ch.Name())
			if err := ch.Send(ctx, ev.Recipient, msg); err != nil {
				d.metrics.NotificationSends.WithLabelValues(ch.Name(), "error").Inc()
				d.log.Error("notification channel failed",
					zap.String("channel", ch.Name()),
					zap.String("kind", string(ev.Kind)),
					zap.String("order", ev.HumanID),
					zap.Error(err),
				)
				return
			}
			d.metrics.NotificationSends.WithLabelValues(ch.Name(), "ok").Inc()
			d.log.Info("notification sent",
				zap.String("channel", ch.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.String("order", ev.HumanID),
			)
		}(ch)
	}
	wg.Wait()
}
