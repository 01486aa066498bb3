package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"ESOAnnouncements/internal/app"
	"ESOAnnouncements/internal/config"
	"ESOAnnouncements/internal/logging"
)

type options struct {
	Config string `short:"c" long:"config" env:"ESO_FEED_CONFIG" description:"Path to the YAML configuration file"`
}

// environment is shared by all commands.
type environment struct {
	ctx  context.Context
	opts options
}

func (e *environment) with(fn func(context.Context, *app.Application) error) error {
	cfg := config.Load(e.opts.Config)
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	defer application.Close()

	if err := fn(e.ctx, application); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}

type runCommand struct {
	env *environment
}

func (c *runCommand) Execute([]string) error {
	return c.env.with(func(ctx context.Context, a *app.Application) error {
		return a.Run(ctx)
	})
}

type scheduleCommand struct {
	env *environment
}

func (c *scheduleCommand) Execute([]string) error {
	return c.env.with(func(ctx context.Context, a *app.Application) error {
		return a.Schedule(ctx)
	})
}

type historyCommand struct {
	Limit int `short:"n" long:"limit" default:"10" description:"Number of runs to show"`
	env   *environment
}

func (c *historyCommand) Execute([]string) error {
	return c.env.with(func(ctx context.Context, a *app.Application) error {
		return a.History(ctx, c.Limit, os.Stdout)
	})
}

func main() {
	os.Exit(execute())
}

func execute() int {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := &environment{ctx: ctx}
	parser := flags.NewParser(&env.opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.SubcommandsOptional = true

	commands := []struct {
		name, short, long string
		data              flags.Commander
	}{
		{"run", "Aggregate announcements once", "Fetch blog and forum announcements and write the feed and digest page.", &runCommand{env: env}},
		{"schedule", "Aggregate on a cron schedule", "Run once at startup, then on every tick of the configured cron expression.", &scheduleCommand{env: env}},
		{"history", "Show recent runs", "Print the most recent recorded runs with their items.", &historyCommand{env: env}},
	}
	for _, cmd := range commands {
		if _, err := parser.AddCommand(cmd.name, cmd.short, cmd.long, cmd.data); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagsErr.Message)
				return 0
			}
			fmt.Fprintln(os.Stderr, flagsErr.Message)
			return 2
		}
		return 1
	}

	if parser.Active == nil {
		if err := (&runCommand{env: env}).Execute(nil); err != nil {
			return 1
		}
	}
	return 0
}
