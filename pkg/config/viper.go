package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/streamchat/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the STREAMCHAT_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STREAMCHAT_CLIENT_BASE_URL, STREAMCHAT_SERVER_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: STREAMCHAT_CLIENT_BASE_URL, STREAMCHAT_STREAM_FRAMING, etc.
	v.SetEnvPrefix("STREAMCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.base_url", d.Client.BaseURL)
	v.SetDefault("client.timeout", d.Client.Timeout)

	// Chat
	v.SetDefault("chat.user_name", d.Chat.UserName)
	v.SetDefault("chat.assistant_name", d.Chat.AssistantName)
	v.SetDefault("chat.apology", d.Chat.Apology)

	// Stream
	v.SetDefault("stream.framing", d.Stream.Framing)
	v.SetDefault("stream.strict_utf8", d.Stream.StrictUTF8)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.token_delay", d.Server.TokenDelay)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}

// FromViper materializes the effective configuration after flag, env, file
// and default precedence has been applied.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			BaseURL: v.GetString("client.base_url"),
			Timeout: v.GetString("client.timeout"),
		},
		Chat: ChatConfig{
			UserName:      v.GetString("chat.user_name"),
			AssistantName: v.GetString("chat.assistant_name"),
			Apology:       v.GetString("chat.apology"),
		},
		Stream: StreamConfig{
			Framing:    v.GetString("stream.framing"),
			StrictUTF8: v.GetBool("stream.strict_utf8"),
		},
		Server: ServerConfig{
			Listen:     v.GetString("server.listen"),
			TokenDelay: v.GetString("server.token_delay"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}
}
