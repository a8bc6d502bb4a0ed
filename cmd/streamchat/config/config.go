// Package configcmder provides the config command for managing persistent
// streamchat configuration stored in the .streamchat/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent streamchat configuration.

Configuration is stored as config.toml in the .streamchat/ directory and
provides default values for command flags. CLI flags and STREAMCHAT_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.base_url, client.timeout,
  chat.user_name, chat.assistant_name, chat.apology,
  stream.framing, stream.strict_utf8,
  server.listen, server.token_delay,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  streamchat config set <key> <value>    Set a configuration value
  streamchat config get <key>            Get a configuration value
  streamchat config list                 List all configuration values

Examples:
  streamchat config set client.base_url https://chat.example.com/api
  streamchat config set stream.framing chunk
  streamchat config get chat.assistant_name
  streamchat config list`

const configShortDesc string = "Manage persistent streamchat configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
