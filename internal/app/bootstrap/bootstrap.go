package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	datacontent "bezcukru/app/internal/data/content"
	"bezcukru/app/internal/data/store"
	domaincontent "bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
	"bezcukru/app/internal/domain/importer"
	"bezcukru/app/internal/platform/config"
	"bezcukru/app/internal/platform/markdown"
	presentationhttp "bezcukru/app/internal/presentation/http"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Core holds the components shared by the site server and the content admin.
type Core struct {
	Store      *store.Store
	Registry   *i18n.Registry
	Repository domaincontent.Repository
	Parser     *markdown.Parser
}

// Close releases the record store.
func (c Core) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

type Result struct {
	Core       Core
	HTTPServer *presentationhttp.Server
	Cleanup    func() error
}

type AdminResult struct {
	Core    Core
	Admin   *importer.Admin
	Cleanup func() error
}

// BuildCore wires the locale registry, record store and content repository. The database is
// not opened until first use.
func BuildCore(deps Dependencies) (Core, error) {
	registry, err := i18n.NewRegistry(deps.Config.Locales)
	if err != nil {
		return Core{}, eris.Wrap(err, "building locale registry")
	}

	recordStore, err := store.New(store.Options{
		Path:   deps.Config.DBPath,
		Logger: deps.Logger,
	})
	if err != nil {
		return Core{}, eris.Wrap(err, "creating record store")
	}

	repo, err := datacontent.NewRepository(datacontent.Options{
		Store:       recordStore,
		Logger:      deps.Logger,
		Concurrency: deps.Config.ImportConcurrency,
	})
	if err != nil {
		return Core{}, eris.Wrap(err, "creating content repository")
	}

	return Core{
		Store:      recordStore,
		Registry:   registry,
		Repository: repo,
		Parser:     markdown.NewParser(),
	}, nil
}

// Build composes the site server. The store is initialized eagerly so a broken database fails
// startup instead of the first request.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	core, err := BuildCore(deps)
	if err != nil {
		return Result{}, err
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := core.Close(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing record store after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := core.Store.Ready(ctx); err != nil {
		return closeOnError(eris.Wrap(err, "initializing record store"))
	}

	httpServer, err := presentationhttp.NewServer(presentationhttp.Options{
		Repository: core.Repository,
		Registry:   core.Registry,
		Renderer:   core.Parser,
		Database:   core.Store,
		Logger:     deps.Logger,
		SentryHub:  deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	return Result{
		Core:       core,
		HTTPServer: httpServer,
		Cleanup:    core.Close,
	}, nil
}

// BuildAdmin composes the content admin around the given prompter.
func BuildAdmin(deps Dependencies, prompter importer.Prompter, auto bool) (AdminResult, error) {
	core, err := BuildCore(deps)
	if err != nil {
		return AdminResult{}, err
	}

	admin, err := importer.NewAdmin(importer.Options{
		Repository:  core.Repository,
		Registry:    core.Registry,
		Parser:      core.Parser,
		Prompter:    prompter,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		RecipesDir:  deps.Config.RecipesDir,
		PagesDir:    deps.Config.PagesDir,
		Auto:        auto,
		Concurrency: deps.Config.ImportConcurrency,
	})
	if err != nil {
		if closeErr := core.Close(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing record store after bootstrap failure")
		}
		return AdminResult{}, eris.Wrap(err, "creating content admin")
	}

	return AdminResult{
		Core:    core,
		Admin:   admin,
		Cleanup: core.Close,
	}, nil
}
