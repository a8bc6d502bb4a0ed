// Package sendcmder provides the send command: stream one reply and exit.
package sendcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/streamchat/cmd/streamchat/clientsetup"
	"github.com/papercomputeco/streamchat/pkg/cliui"
	"github.com/papercomputeco/streamchat/pkg/logger"
	"github.com/papercomputeco/streamchat/pkg/stream"
)

const sendLongDesc string = `Send one message and stream the reply to stdout.

The reply is printed as it arrives. The command exits non-zero when the
reply fails (the configured apology is printed instead) or is interrupted.

Examples:
  streamchat send "hello there"
  streamchat send --base-url https://chat.example.com/api "What is an SSE frame?"
  echo "from a pipe" | streamchat send -`

const sendShortDesc string = "Send one message and stream the reply"

// ErrReplyFailed is returned when the session did not complete.
var ErrReplyFailed = errors.New("reply failed")

type sendCommander struct {
	flags clientsetup.Flags
	debug bool

	in  io.Reader
	out io.Writer
	err io.Writer
}

func NewSendCmd() *cobra.Command {
	cmder := &sendCommander{}

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: sendShortDesc,
		Long:  sendLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cmd, args)
		},
	}

	cmder.flags.Register(cmd)

	return cmd
}

func (c *sendCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(c.in)
		if err != nil {
			return fmt.Errorf("reading message from stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := clientsetup.Load(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(c.err),
	)

	rt, err := clientsetup.Open(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("closing event publisher", "error", err)
		}
	}()

	echo := cliui.NewEcho(c.out, nil)
	unsubscribe := rt.Client.Subscribe(echo.Observe)
	defer unsubscribe()

	res, err := rt.Client.Send(ctx, text, cfg.Chat.UserName)
	if err != nil {
		return err
	}
	echo.Finish()

	log.Debug("reply finished",
		"state", res.State,
		"frames", res.Frames,
		"duration", cliui.FormatDuration(res.Duration),
	)

	switch res.State {
	case stream.Completed:
		return nil
	case stream.Cancelled:
		return res.Err
	default:
		return fmt.Errorf("%w: %w", ErrReplyFailed, res.Err)
	}
}
