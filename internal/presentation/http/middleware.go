package http

import (
	"context"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"bezcukru/app/internal/domain/content"
)

const sentryFlushTimeout = 2 * time.Second

const homeKind = "home"

// pageRoute maps a matched page route onto the stored page path it serves.
func pageRoute(ctx huma.Context) (string, bool) {
	op := ctx.Operation()
	if op == nil {
		return "", false
	}

	switch op.Path {
	case "/{lang}":
		return content.HomePath, true
	case "/{lang}/recipe/{path}":
		return content.RecipePrefix + strings.TrimSpace(ctx.Param("path")), true
	case "/{lang}/{path}":
		return "/" + strings.TrimSpace(ctx.Param("path")), true
	default:
		return "", false
	}
}

func pageKind(path string) string {
	if kind, ok := content.KindOf(path); ok {
		return string(kind)
	}
	return homeKind
}

func pageFields(path string) logrus.Fields {
	return logrus.Fields{"page": path, "page_kind": pageKind(path)}
}

// siteFields describes the locale, page or image a request targets.
func (s *Server) siteFields(ctx huma.Context) logrus.Fields {
	fields := logrus.Fields{}

	if lang := ctx.Param("lang"); lang != "" {
		fields["locale"] = lang
		if _, ok := s.registry.Validate(lang); !ok {
			fields["locale_active"] = false
		}
	}

	if page, ok := pageRoute(ctx); ok {
		for key, value := range pageFields(page) {
			fields[key] = value
		}
	}

	if id := ctx.Param("id"); id != "" {
		fields["image_id"] = id
	}

	return fields
}

func (s *Server) requestIDMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID := ctx.Header("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		next(ctx)
	}
}

func (s *Server) loggingMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		fields := logrus.Fields{
			"component":   "http",
			"method":      ctx.Method(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		}

		if op := ctx.Operation(); op != nil {
			fields["route"] = op.Path
		}

		for key, value := range s.siteFields(ctx) {
			fields[key] = value
		}

		if req, _ := humago.Unwrap(ctx); req != nil {
			fields["path"] = req.URL.Path
			fields["remote_addr"] = req.RemoteAddr
		}

		if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
			fields["request_id"] = requestID
		}

		entry := s.logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request completed")
		}
	}
}

func (s *Server) recoveryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = eris.Errorf("panic: %v", rec)
				}

				s.recordError(ctx.Context(), err, "panic recovered", nil)

				if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
					hub.RecoverWithContext(ctx.Context(), rec)
					hub.Flush(sentryFlushTimeout)
				}

				ctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
				ctx.SetStatus(stdhttp.StatusInternalServerError)
				_, _ = ctx.BodyWriter().Write([]byte("internal server error"))
			}
		}()

		next(ctx)
	}
}

func (s *Server) sentryMiddleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}
		if lang := ctx.Param("lang"); lang != "" {
			scope.SetTag("locale", lang)
		}
		if page, ok := pageRoute(ctx); ok {
			scope.SetTag("page.kind", pageKind(page))
			scope.SetContext("page", sentry.Context{"path": page, "kind": pageKind(page)})
		}

		goCtx := sentry.SetHubOnContext(ctx.Context(), hub)
		ctx = huma.WithContext(ctx, goCtx)

		defer hub.Flush(sentryFlushTimeout)

		next(ctx)
	}
}
