package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/markis/docqa/internal/args"
	"github.com/markis/docqa/internal/client"
	"github.com/markis/docqa/internal/config"
	"github.com/markis/docqa/internal/logging"
	"github.com/markis/docqa/internal/render"
	"github.com/markis/docqa/internal/stream"
)

// errReported means the failure was already shown to the user.
var errReported = errors.New("already reported")

// main function to parse arguments and run the selected command.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		return err
	}

	a, err := args.ParseArgs(*cfg, os.Args[1:], args.PipedStdin())
	if err != nil {
		return err
	}
	if a.Action == args.ActionNone {
		return nil
	}

	if a.Server != "" {
		cfg.Server = a.Server
	}
	level := cfg.LogLevel
	if a.Debug {
		level = "debug"
	}
	logger := logging.New(level, os.Stderr)
	logger.Debug("starting", "action", a.Action, "server", cfg.Server)

	c := client.New(cfg, logger)
	renderer := render.NewTerminalRenderer(os.Stdout, render.Options{
		PlainText: a.UsePlainText,
		Wrap:      cfg.Render.Wrap,
	})

	switch a.Action {
	case args.ActionAsk:
		return ask(ctx, c, renderer, logger, a.Question)
	case args.ActionUpload:
		resp, err := c.Upload(ctx, a.Target)
		if err != nil {
			return err
		}
		render.Message(os.Stdout, resp.Message)
	case args.ActionScrape:
		resp, err := c.Scrape(ctx, a.Target)
		if err != nil {
			return err
		}
		render.Message(os.Stdout, resp.Message)
	case args.ActionStatus:
		status, err := c.Status(ctx)
		if err != nil {
			return fmt.Errorf("connection error: %w", err)
		}
		render.Status(os.Stdout, status)
	case args.ActionSummarize:
		fmt.Fprintln(os.Stderr, "Generating summary...")
		summary, err := c.Summarize(ctx, a.MaxLength)
		if err != nil {
			return err
		}
		return render.Summary(os.Stdout, renderer, summary)
	case args.ActionReset:
		if !a.Yes && !args.Confirm(os.Stdin, os.Stderr, "Are you sure you want to reset all documents? This action cannot be undone.") {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
		resp, err := c.Reset(ctx)
		if err != nil {
			return err
		}
		render.Message(os.Stdout, resp.Message)
	default:
		return fmt.Errorf("unknown action %q", a.Action)
	}
	return nil
}

func ask(ctx context.Context, c *client.Client, renderer *render.TerminalRenderer, logger *log.Logger, question string) error {
	out := c.Ask(ctx, question, renderer)
	if err := renderer.Finish(out); err != nil {
		logger.Warn("rendering answer", "err", err)
	}

	switch out.State {
	case stream.StateCompleted:
		return nil
	case stream.StateCancelled:
		return fmt.Errorf("%w: %w", errReported, context.Canceled)
	default:
		return errReported
	}
}
