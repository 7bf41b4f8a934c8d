package engine

import (
	"sync"
	"time"

	"fillblank/internal/app"
)

// outbox queues a lobby's event batches in the order they were produced.
type outbox struct {
	mu     sync.Mutex
	queue  [][]app.Event
	wake   chan struct{}
	closed bool
}

func newOutbox() *outbox {
	return &outbox{wake: make(chan struct{}, 1)}
}

func (o *outbox) push(events []app.Event) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.queue = append(o.queue, events)
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.signal()
}

func (o *outbox) signal() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest batch. done is true once the outbox is closed and drained.
func (o *outbox) next() (batch []app.Event, ok, done bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return nil, false, o.closed
	}
	batch = o.queue[0]
	o.queue[0] = nil
	o.queue = o.queue[1:]
	return batch, true, false
}

// deliver sends a lobby's batches one at a time. A failing batch is retried
// with a linear backoff, capped after DeliveryRetries steps, until it is
// delivered or the hub closes; later batches wait behind it.
func (h *Hub) deliver(e *entry) {
	for {
		batch, ok, done := e.outbox.next()
		if done {
			return
		}
		if !ok {
			select {
			case <-e.outbox.wake:
				continue
			case <-h.ctx.Done():
				return
			}
		}

		for attempt := 1; ; attempt++ {
			err := h.sink.Deliver(h.ctx, e.code, batch)
			if err == nil {
				break
			}
			step := attempt
			if step > h.opts.DeliveryRetries {
				step = h.opts.DeliveryRetries
			}
			if attempt == h.opts.DeliveryRetries {
				h.logger.Error("Deliver: Lobby %s still holding %d events after %d attempts: %v", e.code, len(batch), attempt, err)
			} else if attempt < h.opts.DeliveryRetries {
				h.logger.Warn("Deliver: Lobby %s attempt %d failed: %v", e.code, attempt, err)
			}
			select {
			case <-time.After(time.Duration(step) * h.opts.DeliveryBackoff):
			case <-h.ctx.Done():
				return
			}
		}
	}
}
