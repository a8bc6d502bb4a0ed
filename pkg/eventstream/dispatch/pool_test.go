package dispatch

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/streamchat/pkg/eventstream"
	"github.com/papercomputeco/streamchat/pkg/logger"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.SessionFinishedEvent
	err    error
	closed bool
	block  chan struct{}
}

func (r *recordingPublisher) PublishSession(_ context.Context, event *eventstream.SessionFinishedEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var _ = Describe("Dispatch Pool", func() {
	var pub *recordingPublisher

	BeforeEach(func() {
		pub = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{Logger: logger.Nop()})
		Expect(err).To(HaveOccurred())
	})

	It("applies defaults", func() {
		p, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(p.config.QueueSize).To(Equal(defaultQueueSize))
		Expect(p.config.PublishTimeout).To(Equal(defaultPublishTimeout))
		Expect(p.Close()).To(Succeed())
	})

	It("publishes every enqueued event before Close returns", func() {
		p, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		for i := range 10 {
			Expect(p.Enqueue(&eventstream.SessionFinishedEvent{EventID: string(rune('a' + i))})).To(BeTrue())
		}

		Expect(p.Close()).To(Succeed())
		Expect(pub.count()).To(Equal(10))
		Expect(pub.closed).To(BeTrue())
	})

	It("drops events when the queue is full", func() {
		pub.block = make(chan struct{})
		p, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, QueueSize: 1, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		// The first event may be picked up by the worker and block there;
		// after at most two more the queue must be full.
		accepted := 0
		for range 3 {
			if p.Enqueue(&eventstream.SessionFinishedEvent{EventID: "evt"}) {
				accepted++
			}
		}
		Expect(accepted).To(BeNumerically("<", 3))

		close(pub.block)
		Expect(p.Close()).To(Succeed())
		Expect(pub.count()).To(Equal(accepted))
	})

	It("keeps going after a publish error", func() {
		pub.err = errors.New("backend down")
		p, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Enqueue(&eventstream.SessionFinishedEvent{EventID: "evt"})).To(BeTrue())
		Expect(p.Close()).To(Succeed())
		Expect(pub.count()).To(Equal(0))
	})

	It("tolerates repeated Close", func() {
		p, err := NewPool(&Config{Publisher: pub, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Close()).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})
})
