// Package dispatch provides an asynchronous worker pool that hands session
// events to an eventstream.Publisher.
//
// The pool decouples publishing from the chat path so that a slow or
// unavailable event backend never delays a streamed reply.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/streamchat/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultQueueSize      uint = 64
	defaultPublishTimeout      = 5 * time.Second
)

// Config is the configuration options for the dispatch pool.
type Config struct {
	// Publisher receives every dispatched event.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 64).
	QueueSize uint

	// PublishTimeout bounds a single publish call (defaults to 5s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes session events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.SessionFinishedEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("dispatch pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan *eventstream.SessionFinishedEvent, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits an event for publishing.
// Returns true if enqueued, false if the queue is full, resulting in the event being dropped
func (p *Pool) Enqueue(event *eventstream.SessionFinishedEvent) bool {
	select {
	case p.queue <- event:
		p.logger.Debug("session event queued", "event_id", event.EventID)
		return true
	default:
		p.logger.Error("session event not queued, queue full, event dropped", "event_id", event.EventID)
		return false
	}
}

// Close signals workers to stop, waits for queued events to drain, then
// closes the publisher. Enqueue must not be called after Close.
func (p *Pool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		err = p.config.Publisher.Close()
	})
	return err
}

// worker continuously pulls events off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("dispatch worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("dispatch worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.SessionFinishedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishSession(ctx, event); err != nil {
		p.logger.Error("publishing session event failed",
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("session event published",
		"event_id", event.EventID,
		"state", event.Session.State,
	)
}
