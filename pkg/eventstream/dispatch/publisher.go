package dispatch

import (
	"fmt"

	"github.com/papercomputeco/streamchat/pkg/eventstream"
	"github.com/papercomputeco/streamchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/streamchat/pkg/eventstream/nop"
)

const (
	ProviderNop   = "nop"
	ProviderKafka = "kafka"
)

// PublisherConfig selects and configures an eventstream.Publisher.
type PublisherConfig struct {
	// Provider is "nop" (the default when empty) or "kafka".
	Provider string
	Brokers  []string
	Topic    string
}

// NewPublisher builds the publisher named by c.Provider.
func NewPublisher(c PublisherConfig) (eventstream.Publisher, error) {
	switch c.Provider {
	case "", ProviderNop:
		return nop.NewPublisher(), nil
	case ProviderKafka:
		p, err := kafka.NewPublisher(kafka.Config{Brokers: c.Brokers, Topic: c.Topic})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event provider: %q (available: nop, kafka)", c.Provider)
	}
}
