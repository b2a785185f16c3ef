package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrDispatcherClosed is returned by Dispatch after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// ErrQueueFull is returned when the in-memory buffer has no room.
var ErrQueueFull = errors.New("notification queue full")

// AsyncOptions tunes an AsyncDispatcher.
type AsyncOptions struct {
	Workers int
	Retries int
	Buffer  int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// Timeout bounds each delivery attempt.
	Timeout time.Duration
}

func (o *AsyncOptions) defaults() {
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Buffer <= 0 {
		o.Buffer = 100
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// AsyncDispatcher delivers events on a pool of background workers.
type AsyncDispatcher struct {
	deliverer Deliverer
	opts      AsyncOptions
	log       zerolog.Logger

	queue  chan Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ Dispatcher = (*AsyncDispatcher)(nil)

// NewAsyncDispatcher starts the worker pool.
func NewAsyncDispatcher(deliverer Deliverer, opts AsyncOptions, log zerolog.Logger) *AsyncDispatcher {
	opts.defaults()
	d := &AsyncDispatcher{
		deliverer: deliverer,
		opts:      opts,
		log:       log,
		queue:     make(chan Event, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch enqueues event without waiting for delivery.
func (d *AsyncDispatcher) Dispatch(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.log.Warn().Str("kind", string(event.Kind)).Str("to", event.To).Msg("notification dropped, queue full")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *AsyncDispatcher) deliver(event Event) {
	var err error
	for attempt := 0; attempt <= d.opts.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * d.opts.Backoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
		err = d.deliverer.Deliver(ctx, event)
		cancel()
		if err == nil {
			return
		}
		d.log.Warn().Err(err).
			Str("kind", string(event.Kind)).
			Str("to", event.To).
			Int("attempt", attempt+1).
			Msg("notification delivery failed")
	}
	d.log.Error().Err(err).
		Str("kind", string(event.Kind)).
		Str("to", event.To).
		Msg("notification given up")
}
