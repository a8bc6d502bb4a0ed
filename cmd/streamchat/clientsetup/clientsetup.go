// Package clientsetup wires the configuration shared by commands that talk to
// a stream backend: flag registration, viper resolution, the chat store, the
// stream client and the session event pipeline.
package clientsetup

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/streamchat/pkg/chat"
	"github.com/papercomputeco/streamchat/pkg/config"
	"github.com/papercomputeco/streamchat/pkg/eventstream/dispatch"
	"github.com/papercomputeco/streamchat/pkg/sse"
	"github.com/papercomputeco/streamchat/pkg/stream"
)

// flagKeys are the registry keys every client command exposes.
var flagKeys = []string{
	config.FlagBaseURL,
	config.FlagTimeout,
	config.FlagUserName,
	config.FlagAssistantName,
	config.FlagApology,
	config.FlagFraming,
	config.FlagStrictUTF8,
	config.FlagEventProvider,
	config.FlagEventBrokers,
	config.FlagEventTopic,
}

// Flags holds flag targets. Values are read back through viper so the
// flag > env > file > default precedence applies.
type Flags struct {
	baseURL       string
	timeout       string
	userName      string
	assistantName string
	apology       string
	framing       string
	strictUTF8    bool
	eventProvider string
	eventBrokers  string
	eventTopic    string
}

// Register adds the client flags to cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &f.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &f.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagUserName, &f.userName)
	config.AddStringFlag(cmd, config.Flags, config.FlagAssistantName, &f.assistantName)
	config.AddStringFlag(cmd, config.Flags, config.FlagApology, &f.apology)
	config.AddStringFlag(cmd, config.Flags, config.FlagFraming, &f.framing)
	config.AddBoolFlag(cmd, config.Flags, config.FlagStrictUTF8, &f.strictUTF8)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &f.eventProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventBrokers, &f.eventBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventTopic, &f.eventTopic)
}

// Load resolves the effective configuration for cmd.
func Load(cmd *cobra.Command) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return config.FromViper(v), nil
}

// Runtime is a ready-to-use stream client with its event pipeline.
type Runtime struct {
	Config *config.Config
	Store  *chat.Store
	Client *stream.Client

	pool *dispatch.Pool
}

// Open builds the store, the event pool and the client described by cfg.
func Open(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	framing, ok := sse.ParseFraming(cfg.Stream.Framing)
	if !ok {
		return nil, fmt.Errorf("invalid framing %q (available: chunk, line)", cfg.Stream.Framing)
	}

	timeout, err := time.ParseDuration(cfg.Client.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid client timeout %q: %w", cfg.Client.Timeout, err)
	}

	publisher, err := dispatch.NewPublisher(dispatch.PublisherConfig{
		Provider: cfg.EventStream.Provider,
		Brokers:  cfg.EventStream.BrokerList(),
		Topic:    cfg.EventStream.Topic,
	})
	if err != nil {
		return nil, err
	}

	pool, err := dispatch.NewPool(&dispatch.Config{
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	store := chat.NewStore(logger)
	client, err := stream.NewClient(store, stream.Config{
		BaseURL:       cfg.Client.BaseURL,
		HTTPClient:    &http.Client{Timeout: timeout},
		AssistantName: cfg.Chat.AssistantName,
		Apology:       cfg.Chat.Apology,
		Framing:       framing,
		StrictUTF8:    cfg.Stream.StrictUTF8,
		Events:        pool,
		Logger:        logger,
	})
	if err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Runtime{
		Config: cfg,
		Store:  store,
		Client: client,
		pool:   pool,
	}, nil
}

// Close drains pending session events and closes the publisher.
func (r *Runtime) Close() error {
	return r.pool.Close()
}
