// Package servecmder provides the serve command that runs the demo stream
// backend.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/streamchat/pkg/config"
	"github.com/papercomputeco/streamchat/pkg/logger"
	"github.com/papercomputeco/streamchat/pkg/server"
)

const logFileName = "serve.log"

const serveLongDesc string = `Run the demo stream backend.

POST /stream with {"message": "..."} answers with a text/event-stream reply
that echoes the message word by word, one "data: " frame per token, followed
by "data: [DONE]". Use it to try "streamchat chat" without a model behind it.

Edits to server.token_delay in config.toml are picked up while running,
unless --token-delay was given. Logs go to stderr and, as JSON, to serve.log
in the .streamchat/ directory.

Examples:
  streamchat serve
  streamchat serve --listen :9000 --token-delay 100ms`

const serveShortDesc string = "Run the demo stream backend"

type serveCommander struct {
	listen     string
	tokenDelay string
	noLogFile  bool
	debug      bool

	logger *slog.Logger
}

var serveFlagKeys = []string{config.FlagListen, config.FlagTokenDelay}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
			cfg := config.FromViper(v)

			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx, cmd.ErrOrStderr(), cfg, cfger.GetTarget(), cmd.Flags().Changed("token-delay"))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagTokenDelay, &cmder.tokenDelay)
	cmd.Flags().BoolVar(&cmder.noLogFile, "no-log-file", false, "Only log to stderr")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, stderr io.Writer, cfg *config.Config, configPath string, pinnedDelay bool) error {
	delay, err := time.ParseDuration(cfg.Server.TokenDelay)
	if err != nil {
		return fmt.Errorf("invalid token delay %q: %w", cfg.Server.TokenDelay, err)
	}

	closeLog, err := c.setupLogger(stderr, configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	s := server.New(server.Config{
		ListenAddr: cfg.Server.Listen,
		TokenDelay: delay,
		Logger:     c.logger,
	})

	errChan := make(chan error, 2)
	go func() {
		if err := s.Run(); err != nil {
			errChan <- fmt.Errorf("stream server error: %w", err)
		}
	}()

	if configPath != "" && !pinnedDelay {
		go func() {
			err := watchTokenDelay(ctx, configPath, c.logger, s.SetTokenDelay)
			if err != nil && !errors.Is(err, context.Canceled) {
				errChan <- err
			}
		}()
	}

	select {
	case err := <-errChan:
		_ = s.Shutdown()
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down stream server")
		return s.Shutdown()
	}
}

// setupLogger logs pretty to stderr and, unless disabled, as JSON to
// serve.log next to config.toml.
func (c *serveCommander) setupLogger(stderr io.Writer, configPath string) (func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(stderr),
	)

	if c.noLogFile || configPath == "" {
		c.logger = console
		return func() {}, nil
	}

	path := filepath.Join(filepath.Dir(configPath), logFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	c.logger.Debug("logging to file", "path", path)

	return func() { _ = f.Close() }, nil
}

// watchTokenDelay re-reads the config file whenever it is written and hands
// a changed server.token_delay to apply. Invalid values are logged and
// ignored. It returns when ctx is done.
func watchTokenDelay(ctx context.Context, configPath string, log *slog.Logger, apply func(time.Duration)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("watching config dir: %w", err)
	}

	reload := func() {
		data, err := os.ReadFile(configPath)
		if err != nil {
			log.Warn("reading config for reload", "error", err)
			return
		}
		cfg, err := config.ParseConfigTOML(data)
		if err != nil {
			log.Warn("parsing config for reload", "error", err)
			return
		}
		if cfg.Server.TokenDelay == "" {
			return
		}
		d, err := time.ParseDuration(cfg.Server.TokenDelay)
		if err != nil {
			log.Warn("ignoring invalid token delay", "value", cfg.Server.TokenDelay, "error", err)
			return
		}
		apply(d)
		log.Info("token delay reloaded", "token_delay", d)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("config watcher error: %w", err)
		}
	}
}
