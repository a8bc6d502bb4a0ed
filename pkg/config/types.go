package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent streamchat configuration stored as
// config.toml in the .streamchat/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Client      ClientConfig      `toml:"client"`
	Chat        ChatConfig        `toml:"chat"`
	Stream      StreamConfig      `toml:"stream"`
	Server      ServerConfig      `toml:"server"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// ClientConfig holds settings for commands that talk to a stream endpoint
// (streamchat chat, streamchat send). BaseURL is a full URL; requests go to
// BaseURL + "/stream".
type ClientConfig struct {
	BaseURL string `toml:"base_url,omitempty"`
	Timeout string `toml:"timeout,omitempty"`
}

// ChatConfig holds the identities and fixed texts shown in the conversation.
type ChatConfig struct {
	UserName      string `toml:"user_name,omitempty"`
	AssistantName string `toml:"assistant_name,omitempty"`
	Apology       string `toml:"apology,omitempty"`
}

// StreamConfig holds frame parsing settings.
type StreamConfig struct {
	Framing    string `toml:"framing,omitempty"`
	StrictUTF8 bool   `toml:"strict_utf8,omitempty"`
}

// ServerConfig holds settings for the bundled demo backend.
type ServerConfig struct {
	Listen     string `toml:"listen,omitempty"`
	TokenDelay string `toml:"token_delay,omitempty"`
}

// EventStreamConfig holds the session event publisher settings. Brokers is a
// comma separated list of host:port pairs.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if err := validDuration("client.timeout", v); err != nil {
				return err
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"chat.user_name": {
		get: func(c *Config) string { return c.Chat.UserName },
		set: func(c *Config, v string) error { c.Chat.UserName = v; return nil },
	},
	"chat.assistant_name": {
		get: func(c *Config) string { return c.Chat.AssistantName },
		set: func(c *Config, v string) error { c.Chat.AssistantName = v; return nil },
	},
	"chat.apology": {
		get: func(c *Config) string { return c.Chat.Apology },
		set: func(c *Config, v string) error { c.Chat.Apology = v; return nil },
	},
	"stream.framing": {
		get: func(c *Config) string { return c.Stream.Framing },
		set: func(c *Config, v string) error {
			if v != "chunk" && v != "line" {
				return fmt.Errorf("invalid value for stream.framing: %q (available: chunk, line)", v)
			}
			c.Stream.Framing = v
			return nil
		},
	},
	"stream.strict_utf8": {
		get: func(c *Config) string { return strconv.FormatBool(c.Stream.StrictUTF8) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for stream.strict_utf8: %w", err)
			}
			c.Stream.StrictUTF8 = b
			return nil
		},
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.token_delay": {
		get: func(c *Config) string { return c.Server.TokenDelay },
		set: func(c *Config, v string) error {
			if err := validDuration("server.token_delay", v); err != nil {
				return err
			}
			c.Server.TokenDelay = v
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if v != "nop" && v != "kafka" {
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: nop, kafka)", v)
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}

func validDuration(key, v string) error {
	if _, err := time.ParseDuration(v); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
