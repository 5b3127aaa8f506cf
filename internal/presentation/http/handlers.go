package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bezcukru/app/internal/data/database"
	"bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
	"bezcukru/app/internal/presentation/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	textContentType      = "text/plain; charset=utf-8"
	imageContentType     = "image/jpeg"
	imageCacheControl    = "public, max-age=3600"
	errorFallbackMessage = "We couldn't process your request right now."
	notFoundMessage      = "We couldn't find that page."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type imageResponse struct {
	Status       int
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type localeInput struct {
	Lang string `path:"lang"`
}

type pageInput struct {
	Lang string `path:"lang"`
	Path string `path:"path"`
}

type imageInput struct {
	ID string `path:"id"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/{lang}", s.homeHandler, htmlOperation(
		"Localized home page",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerArticleRoute() {
	huma.Get(s.api, "/{lang}/{path}", s.articleHandler, htmlOperation(
		"Fetch article",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerRecipeRoute() {
	huma.Get(s.api, "/{lang}/recipe/{path}", s.recipeHandler, htmlOperation(
		"Fetch recipe",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerImageRoute() {
	huma.Get(s.api, "/img/{id}", s.imageHandler, func(op *huma.Operation) {
		op.Summary = "Fetch image bytes"
		op.Responses = map[string]*huma.Response{}
		for _, status := range []int{stdhttp.StatusOK, stdhttp.StatusBadRequest, stdhttp.StatusNotFound, stdhttp.StatusInternalServerError} {
			contentType := textContentType
			if status == stdhttp.StatusOK {
				contentType = imageContentType
			}
			op.Responses[strconv.Itoa(status)] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					contentType: {Schema: &huma.Schema{Type: "string"}},
				},
			}
		}
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, input *localeInput) (*htmlResponse, error) {
	locale, ok := s.registry.Validate(input.Lang)
	if !ok {
		return s.renderErrorResponse(ctx, "", stdhttp.StatusNotFound, notFoundMessage)
	}

	var (
		page     *content.Page
		recipes  []content.PageSummary
		articles []content.PageSummary
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		page, err = s.repository.GetPage(groupCtx, content.HomePath, locale)
		return err
	})
	group.Go(func() error {
		var err error
		recipes, err = s.repository.GetRecipes(groupCtx, locale, content.DefaultListLimit)
		return err
	})
	group.Go(func() error {
		var err error
		articles, err = s.repository.GetArticles(groupCtx, locale, content.DefaultListLimit)
		return err
	})
	if err := group.Wait(); err != nil {
		s.recordError(ctx, err, "loading home page", logrus.Fields{"locale": locale})
		return s.renderErrorResponse(ctx, locale, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.HomePageData{
		Recipes:  listItems(recipes),
		Articles: listItems(articles),
	}

	title := ""
	if page != nil {
		html, err := s.renderer.Render(page.Markdown)
		if err != nil {
			s.recordError(ctx, err, "rendering home markdown", logrus.Fields{"locale": locale})
			return s.renderErrorResponse(ctx, locale, stdhttp.StatusInternalServerError, errorFallbackMessage)
		}
		data.BodyHTML = html
		title = page.Heading
	}
	data.Layout = s.layout(ctx, locale, content.HomePath, title)

	body, err := renderComponent(ctx, templates.HomePage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering home page", logrus.Fields{"locale": locale})
		return s.renderErrorResponse(ctx, locale, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) articleHandler(ctx context.Context, input *pageInput) (*htmlResponse, error) {
	return s.contentPage(ctx, input.Lang, "/"+strings.TrimSpace(input.Path))
}

func (s *Server) recipeHandler(ctx context.Context, input *pageInput) (*htmlResponse, error) {
	return s.contentPage(ctx, input.Lang, content.RecipePrefix+strings.TrimSpace(input.Path))
}

func (s *Server) contentPage(ctx context.Context, lang, path string) (*htmlResponse, error) {
	locale, ok := s.registry.Validate(lang)
	if !ok {
		return s.renderErrorResponse(ctx, "", stdhttp.StatusNotFound, notFoundMessage)
	}

	fields := pageFields(path)
	fields["locale"] = locale

	page, err := s.repository.GetPage(ctx, path, locale)
	if err != nil {
		s.recordError(ctx, err, "loading page", fields)
		return s.renderErrorResponse(ctx, locale, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}
	if page == nil {
		return s.renderErrorResponse(ctx, locale, stdhttp.StatusNotFound, notFoundMessage)
	}

	html, err := s.renderer.Render(page.Markdown)
	if err != nil {
		s.recordError(ctx, err, "rendering page markdown", fields)
		return s.renderErrorResponse(ctx, locale, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	data := templates.ContentPageData{
		Layout:   s.layout(ctx, locale, path, page.Heading),
		Heading:  page.Heading,
		ImageURL: imageURL(page.ImageID),
		BodyHTML: html,
	}

	body, err := renderComponent(ctx, templates.ContentPage(data))
	if err != nil {
		s.recordError(ctx, err, "rendering page", fields)
		return s.renderErrorResponse(ctx, locale, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) imageHandler(ctx context.Context, input *imageInput) (*imageResponse, error) {
	prefix := "Error processing GET /img/" + input.ID

	id, err := parseImageID(input.ID)
	if err != nil {
		return newTextResponse(stdhttp.StatusBadRequest, prefix+" Invalid image ID"), nil
	}

	data, err := s.repository.GetImageData(ctx, id)
	if err != nil {
		s.recordError(ctx, err, "loading image", logrus.Fields{"image_id": id})
		return newTextResponse(stdhttp.StatusInternalServerError, prefix), nil
	}
	if data == nil {
		return newTextResponse(stdhttp.StatusNotFound, "Not Found"), nil
	}

	return &imageResponse{
		Status:       stdhttp.StatusOK,
		ContentType:  imageContentType,
		CacheControl: imageCacheControl,
		Body:         data,
	}, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	if s.database == nil {
		resp.Body.Status = "degraded"
		resp.Body.Database = "unconfigured"
		resp.Status = stdhttp.StatusServiceUnavailable
		return resp, nil
	}

	if err := s.pingDatabase(ctx); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
		return resp, nil
	}

	resp.Status = stdhttp.StatusOK
	return resp, nil
}

func (s *Server) pingDatabase(ctx context.Context) error {
	gormDB, err := s.database.DB(ctx)
	if err != nil {
		return err
	}

	sqlDB, err := database.SQLDB(gormDB)
	if err != nil {
		return err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return eris.Wrap(err, "pinging database")
	}
	return nil
}

// parseImageID accepts decimal integers of at least one.
func parseImageID(raw string) (int64, error) {
	if err := validation.Validate(raw, validation.Required, is.Int); err != nil {
		return 0, eris.Wrap(err, "invalid image id")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, eris.Wrap(err, "invalid image id")
	}

	if err := validation.Validate(id, validation.Required, validation.Min(int64(1))); err != nil {
		return 0, eris.Wrap(err, "invalid image id")
	}

	return id, nil
}

// layout builds the header navigation. Switching to a locale without a translation of the
// current page links to that locale's home page instead.
func (s *Server) layout(ctx context.Context, current i18n.Locale, path, title string) templates.LayoutData {
	data := templates.LayoutData{
		Title:    title,
		Locale:   string(current),
		HomeLink: "/" + string(current),
	}

	for _, lf := range s.registry.LocalesWithFlags() {
		link := templates.LocaleLink{
			Locale:  string(lf.Locale),
			Flag:    lf.Flag,
			Href:    localizedURL(lf.Locale, path),
			Current: lf.Locale == current,
		}

		if !link.Current && path != content.HomePath {
			_, found, err := s.repository.GetPageTitle(ctx, path, lf.Locale)
			if err != nil && s.logger != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"component": "http",
					"locale":    lf.Locale,
					"path":      path,
				}).Warn("probing translation failed")
			}
			if err != nil || !found {
				link.Href = "/" + string(lf.Locale)
			}
		}

		data.Links = append(data.Links, link)
	}

	return data
}

func localizedURL(locale i18n.Locale, path string) string {
	if path == content.HomePath {
		return "/" + string(locale)
	}
	return "/" + string(locale) + path
}

func listItems(pages []content.PageSummary) []templates.ListItem {
	items := make([]templates.ListItem, 0, len(pages))
	for _, page := range pages {
		items = append(items, templates.ListItem{
			Heading:  page.Heading,
			URL:      "/" + page.URL,
			ImageURL: imageURL(page.ImageID),
		})
	}
	return items
}

func imageURL(id *int64) string {
	if id == nil {
		return ""
	}
	return "/img/" + strconv.FormatInt(*id, 10)
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func newTextResponse(status int, body string) *imageResponse {
	return &imageResponse{
		Status:      status,
		ContentType: textContentType,
		Body:        []byte(body),
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, locale i18n.Locale, status int, message string) (*htmlResponse, error) {
	if locale == "" {
		locale = s.registry.Default()
	}

	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		Layout:      s.layout(ctx, locale, content.HomePath, label),
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error()).WithField("component", "http")
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
