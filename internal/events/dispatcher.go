package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Sink delivers an event to one destination.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Dispatcher fans committed events out to sinks from a bounded queue.
// Notify never blocks: when the queue is full the event is dropped and logged.
type Dispatcher struct {
	jobs    chan Event
	sinks   []Sink
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
	closing int32
	mu      sync.RWMutex // guards close(jobs) against concurrent Notify
	dropped atomic.Int64
}

// NewDispatcher starts workers goroutines reading from a queue of the given capacity.
func NewDispatcher(ctx context.Context, log *zap.Logger, capacity, workers int, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		jobs:    make(chan Event, capacity),
		sinks:   sinks,
		log:     log,
		timeout: 5 * time.Second,
	}
	d.start(ctx, workers)
	return d
}

func (d *Dispatcher) start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case ev, ok := <-d.jobs:
					if !ok {
						return
					}
					d.deliver(ctx, ev)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		err := s.Publish(sctx, ev)
		cancel()
		if err != nil {
			d.log.Warn("event delivery failed",
				zap.String("sink", s.Name()),
				zap.String("type", ev.Type),
				zap.String("order_id", ev.OrderID),
				zap.Error(err))
		}
	}
}

// Notify enqueues ev for delivery.
func (d *Dispatcher) Notify(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if atomic.LoadInt32(&d.closing) == 1 {
		return
	}
	select {
	case d.jobs <- ev:
	default:
		d.dropped.Add(1)
		d.log.Warn("event queue full, dropping event",
			zap.String("type", ev.Type),
			zap.String("order_id", ev.OrderID))
	}
}

// Dropped reports how many events were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Shutdown stops accepting events and waits until queued ones are delivered.
func (d *Dispatcher) Shutdown() {
	if !atomic.CompareAndSwapInt32(&d.closing, 0, 1) {
		return
	}
	d.mu.Lock()
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}
