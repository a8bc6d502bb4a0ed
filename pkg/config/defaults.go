package config

const (
	defaultBaseURL = "http://localhost:8090"
	defaultTimeout = "5m"

	defaultUserName      = "User"
	defaultAssistantName = "AI Assistant"
	defaultApology       = "Sorry, something went wrong. Please try again later."

	defaultFraming = "line"

	defaultServerListen = ":8090"
	defaultTokenDelay   = "40ms"

	defaultEventProvider = "nop"
	defaultBrokers       = "localhost:9092"
	defaultTopic         = "streamchat.sessions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL: defaultBaseURL,
			Timeout: defaultTimeout,
		},
		Chat: ChatConfig{
			UserName:      defaultUserName,
			AssistantName: defaultAssistantName,
			Apology:       defaultApology,
		},
		Stream: StreamConfig{
			Framing: defaultFraming,
		},
		Server: ServerConfig{
			Listen:     defaultServerListen,
			TokenDelay: defaultTokenDelay,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventProvider,
			Brokers:  defaultBrokers,
			Topic:    defaultTopic,
		},
	}
}
