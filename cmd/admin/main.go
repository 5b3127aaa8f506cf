// Command admin imports markdown content into the site database or removes stored pages.
//
// Arguments are matched by suffix: a token ending in "auto" imports every file without
// prompting, a token ending in "remove" starts the interactive removal flow.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"

	"bezcukru/app/internal/app/bootstrap"
	"bezcukru/app/internal/domain/importer"
	"bezcukru/app/internal/infrastructure/prompt"
	"bezcukru/app/internal/platform/config"
	applog "bezcukru/app/internal/platform/log"
)

type mode struct {
	auto   bool
	remove bool
}

func parseMode(args []string) mode {
	var m mode
	for _, arg := range args {
		switch {
		case strings.HasSuffix(arg, "remove"):
			m.remove = true
		case strings.HasSuffix(arg, "auto"):
			m.auto = true
		}
	}
	return m
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, parseMode(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, m mode) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	var prompter importer.Prompter = prompt.NewTerminal()
	if m.auto && !m.remove {
		prompter = prompt.Unattended{}
	}

	app, err := bootstrap.BuildAdmin(bootstrap.Dependencies{
		Config:    *cfg,
		Logger:    logger,
		SentryHub: sentryHub,
	}, prompter, m.auto)
	if err != nil {
		return eris.Wrap(err, "building content admin")
	}
	defer func() {
		if closeErr := app.Cleanup(); closeErr != nil {
			logger.WithError(closeErr).Error("closing record store")
		}
	}()

	if m.remove {
		return app.Admin.Remove(ctx)
	}
	return app.Admin.Populate(ctx)
}
