// Package http serves the public site: localized pages, recipe images and health checks.
package http

import (
	"context"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
)

// Renderer turns stored markdown into sanitized HTML.
type Renderer interface {
	Render(markdown string) (string, error)
}

// Database exposes the connection probed by the health check.
type Database interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

// Options configures the HTTP server wiring.
type Options struct {
	Repository content.Repository
	Registry   *i18n.Registry
	Renderer   Renderer
	Database   Database
	Logger     *logrus.Logger
	SentryHub  *sentry.Hub
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api        huma.API
	mux        *stdhttp.ServeMux
	handler    stdhttp.Handler
	repository content.Repository
	registry   *i18n.Registry
	renderer   Renderer
	database   Database
	logger     *logrus.Logger
	sentry     *sentry.Hub
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Repository == nil {
		return nil, eris.New("content repository is required")
	}
	if opts.Registry == nil {
		return nil, eris.New("locale registry is required")
	}
	if opts.Renderer == nil {
		return nil, eris.New("markdown renderer is required")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Bez cukru", "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:        api,
		mux:        mux,
		repository: opts.Repository,
		registry:   opts.Registry,
		renderer:   opts.Renderer,
		database:   opts.Database,
		logger:     opts.Logger,
		sentry:     opts.SentryHub,
	}

	srv.registerMiddlewares()
	srv.registerRoutes()
	srv.handler = LocaleRedirect(opts.Registry, mux)

	return srv, nil
}

// Handler exposes the HTTP handler for wiring into the application. Requests pass through
// the locale redirect before reaching the routes.
func (s *Server) Handler() stdhttp.Handler {
	return s.handler
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerHomeRoute()
	s.registerArticleRoute()
	s.registerRecipeRoute()
	s.registerImageRoute()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.handler.ServeHTTP(w, r)
}
