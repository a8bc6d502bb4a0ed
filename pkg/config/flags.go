package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --base-url
// on both "streamchat chat" and "streamchat send").
type Flag struct {
	// Name is the long flag name (e.g. "base-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.base_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBaseURL       = "base-url"
	FlagTimeout       = "timeout"
	FlagUserName      = "user-name"
	FlagAssistantName = "assistant-name"
	FlagApology       = "apology"
	FlagFraming       = "framing"
	FlagStrictUTF8    = "strict-utf8"
	FlagListen        = "listen"
	FlagTokenDelay    = "token-delay"
	FlagEventProvider = "event-provider"
	FlagEventBrokers  = "event-brokers"
	FlagEventTopic    = "event-topic"
)

// Flags is the registry shared by every streamchat command.
var Flags = FlagSet{
	FlagBaseURL:       {Name: "base-url", Shorthand: "u", ViperKey: "client.base_url", Description: "Stream backend base URL"},
	FlagTimeout:       {Name: "timeout", ViperKey: "client.timeout", Description: "Overall request timeout (e.g. 5m)"},
	FlagUserName:      {Name: "user-name", ViperKey: "chat.user_name", Description: "Sender name for your messages"},
	FlagAssistantName: {Name: "assistant-name", ViperKey: "chat.assistant_name", Description: "Sender name for streamed replies"},
	FlagApology:       {Name: "apology", ViperKey: "chat.apology", Description: "Message shown when a reply fails"},
	FlagFraming:       {Name: "framing", ViperKey: "stream.framing", Description: "Frame alignment: chunk or line"},
	FlagStrictUTF8:    {Name: "strict-utf8", ViperKey: "stream.strict_utf8", Description: "Fail on malformed UTF-8 instead of substituting"},
	FlagListen:        {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the stream backend to listen on"},
	FlagTokenDelay:    {Name: "token-delay", ViperKey: "server.token_delay", Description: "Delay between streamed tokens"},
	FlagEventProvider: {Name: "event-provider", ViperKey: "eventstream.provider", Description: "Session event publisher: nop or kafka"},
	FlagEventBrokers:  {Name: "event-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventTopic:    {Name: "event-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for session events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
