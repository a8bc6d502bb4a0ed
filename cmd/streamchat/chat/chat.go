// Package chatcmder provides the chat command: an interactive conversation
// with a stream backend, printing each reply as it arrives.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/streamchat/cmd/streamchat/clientsetup"
	"github.com/papercomputeco/streamchat/pkg/chat"
	"github.com/papercomputeco/streamchat/pkg/cliui"
	"github.com/papercomputeco/streamchat/pkg/config"
	"github.com/papercomputeco/streamchat/pkg/eventstream/dispatch"
	"github.com/papercomputeco/streamchat/pkg/eventstream/kafka"
	"github.com/papercomputeco/streamchat/pkg/logger"
	"github.com/papercomputeco/streamchat/pkg/stream"
	"github.com/papercomputeco/streamchat/pkg/utils"
)

const chatLongDesc string = `Start an interactive chat session with a stream backend.

Each message is posted to <base-url>/stream and the reply is printed as its
frames arrive. On a terminal, finished replies are re-rendered as markdown
(disable with --plain). Press Ctrl+C while a reply is streaming to stop it;
the partial text is kept.

Commands:
  /clear   Clear the conversation
  /count   Show the number of messages
  /exit    Quit (Ctrl+D also quits)

Examples:
  streamchat chat
  streamchat chat --base-url https://chat.example.com/api --framing chunk`

const chatShortDesc string = "Interactive chat with a stream backend"

type chatCommander struct {
	flags clientsetup.Flags
	plain bool
	debug bool

	in  io.Reader
	out io.Writer
	err io.Writer

	// interactive is true when stdin and stdout are terminals.
	interactive bool
	width       int

	logger *slog.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.err = cmd.ErrOrStderr()
			cmder.detectTerminal()

			cfg, err := clientsetup.Load(cmd)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			return cmder.run(cmd.Context(), cfg)
		},
	}

	cmder.flags.Register(cmd)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print replies as plain text instead of rendered markdown")

	return cmd
}

// detectTerminal enables the interactive extras only when both ends of the
// session are real terminals.
func (c *chatCommander) detectTerminal() {
	in, inOK := c.in.(*os.File)
	out, outOK := c.out.(*os.File)
	if !inOK || !outOK || !term.IsTerminal(int(in.Fd())) || !term.IsTerminal(int(out.Fd())) {
		c.interactive = false
		cliui.DisableColor()
		return
	}

	c.interactive = cliui.ColorEnabled(out)
	if w, _, err := term.GetSize(int(out.Fd())); err == nil {
		c.width = w
	}
}

func (c *chatCommander) run(ctx context.Context, cfg *config.Config) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(c.err),
	)

	rt, err := clientsetup.Open(cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			c.logger.Warn("closing event publisher", "error", err)
		}
	}()

	if cfg.EventStream.Provider == dispatch.ProviderKafka {
		c.checkBrokers(ctx, cfg.EventStream.BrokerList())
	}

	c.printBanner(cfg, rt.Client.Endpoint())

	echo := cliui.NewEcho(c.out, func(m chat.Message) string {
		return cliui.Prompt(cliui.NameStyle, m.Sender)
	})
	unsubscribe := rt.Client.Subscribe(echo.Observe)
	defer unsubscribe()

	userPrompt := cliui.Prompt(cliui.UserStyle, cfg.Chat.UserName)
	scanner := bufio.NewScanner(c.in)

	for {
		if c.interactive {
			fmt.Fprint(c.out, userPrompt)
		}
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			return nil
		case "/clear":
			rt.Client.Clear()
			fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Conversation cleared."))
			continue
		case "/count":
			fmt.Fprintf(c.out, "  %s %d\n", cliui.KeyStyle.Render("Messages:"), rt.Client.Count())
			continue
		}

		c.exchange(ctx, rt.Client, echo, input, cfg.Chat.UserName)
	}

	return scanner.Err()
}

// exchange sends one message and finishes the echoed reply. Ctrl+C cancels
// only the reply in flight.
func (c *chatCommander) exchange(ctx context.Context, client *stream.Client, echo *cliui.Echo, input, userName string) {
	c.logger.Debug("sending message", "message", utils.Truncate(input, 48))

	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	res, err := client.Send(sendCtx, input, userName)
	stop()
	if err != nil {
		fmt.Fprintf(c.err, "  %s %v\n", cliui.FailMark, err)
		return
	}

	switch res.State {
	case stream.Completed:
		c.finishReply(echo)
	case stream.Cancelled:
		echo.Finish()
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("(interrupted)"))
	default:
		echo.Finish()
		c.logger.Debug("reply failed", "error", res.Err)
	}

	c.logger.Debug("reply finished",
		"state", res.State,
		"frames", res.Frames,
		"duration", cliui.FormatDuration(res.Duration),
	)
}

// finishReply ends the echoed line, redrawing it as markdown on a terminal.
func (c *chatCommander) finishReply(echo *cliui.Echo) {
	_, text := echo.Current()
	if !c.interactive || c.plain || strings.TrimSpace(text) == "" {
		echo.Finish()
		return
	}

	rendered, err := cliui.RenderMarkdown(text, c.width)
	if err != nil {
		c.logger.Debug("markdown render failed", "error", err)
		echo.Finish()
		return
	}

	echo.Erase(c.width)
	fmt.Fprint(c.out, strings.TrimRight(rendered, "\n")+"\n\n")
}

func (c *chatCommander) checkBrokers(ctx context.Context, brokers []string) {
	err := cliui.Step(c.err, "Checking event brokers", func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return kafka.Ping(pingCtx, brokers)
	})
	if err != nil {
		c.logger.Warn("event brokers unreachable, session events may be dropped", "error", err)
	}
}

func (c *chatCommander) printBanner(cfg *config.Config, endpoint string) {
	if !c.interactive {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Endpoint:"), cliui.NameStyle.Render(endpoint))
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Framing:"), cliui.DimStyle.Render(cfg.Stream.Framing))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
}
