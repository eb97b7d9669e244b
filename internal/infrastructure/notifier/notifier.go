package notifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-checkout-service/internal/domain"
	"github.com/LavaJover/shvark-checkout-service/internal/infrastructure/metrics"
)

// Dispatcher fans notifications out to every sink in the background. Failures are
// logged and counted, never returned.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	metrics *metrics.CheckoutMetrics
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, m *metrics.CheckoutMetrics, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, metrics: m}
}

func (d *Dispatcher) NotifyOrder(n domain.OrderNotification) {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("notification sink panicked", "sink", sink.Name(), "panic", r)
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			err := sink.Send(ctx, n)
			d.metrics.RecordNotification(sink.Name(), err)
			if err != nil {
				slog.Warn("notification failed",
					"sink", sink.Name(),
					"order_number", n.Order.OrderNumber,
					"kind", n.Kind,
					"error", err,
				)
			}
		}(sink)
	}
}

// Wait blocks until every notification in flight has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
