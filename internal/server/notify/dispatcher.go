package notify

import (
	"context"
	"sync"
	"time"

	"github.com/janndizz/test-plogg/internal/logging"
)

// Dispatcher runs sends as detached background tasks. A send outlives the
// request that triggered it, is bounded by its own timeout, and its failure
// is only logged.
type Dispatcher struct {
	notifier Notifier
	logger   logging.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(notifier Notifier, logger logging.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger, timeout: timeout}
}

// Dispatch starts delivering msg and returns immediately. Values carried by
// ctx (request id, trace) are kept; its cancellation is not.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		defer func() {
			if p := recover(); p != nil {
				d.logger.Error(ctx, "notification panicked", "to", msg.To, "panic", p)
			}
		}()

		start := time.Now()
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Error(ctx, "notification failed", "to", msg.To, "error", err)
			return
		}
		d.logger.Debug(ctx, "notification sent", "to", msg.To, "elapsed", time.Since(start))
	}()
}

// Wait blocks until all in-flight sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
