// Package streamchatcmder
package streamchatcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/streamchat/cmd/streamchat/chat"
	configcmder "github.com/papercomputeco/streamchat/cmd/streamchat/config"
	sendcmder "github.com/papercomputeco/streamchat/cmd/streamchat/send"
	servecmder "github.com/papercomputeco/streamchat/cmd/streamchat/serve"
	versioncmder "github.com/papercomputeco/streamchat/cmd/streamchat/version"
)

const streamchatLongDesc string = `Streamchat is a terminal chat client for streaming (SSE) backends.

Replies arrive as "data: " frames and are rendered as they grow.

Get started:
  streamchat serve               Run the demo stream backend
  streamchat chat                Chat interactively
  streamchat send "hello"        Send one message and print the reply
  streamchat config list         Show the effective configuration`

const streamchatShortDesc string = "Streamchat - streaming chat client"

func NewStreamchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "streamchat",
		Short:         streamchatShortDesc,
		Long:          streamchatLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .streamchat/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sendcmder.NewSendCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
