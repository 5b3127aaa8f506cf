package bootstrap

import (
	"context"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"bezcukru/app/internal/infrastructure/prompt"
	"bezcukru/app/internal/platform/config"
)

func testDependencies(t *testing.T, locales ...string) Dependencies {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	return Dependencies{
		Config: config.Config{
			DBPath:            filepath.Join(dir, "data", "site.db"),
			Locales:           locales,
			RecipesDir:        t.TempDir(),
			PagesDir:          t.TempDir(),
			ImportConcurrency: 2,
		},
		Logger: logger,
	}
}

func TestBuildServesHealthCheck(t *testing.T) {
	t.Parallel()

	result, err := Build(context.Background(), testDependencies(t, "pl", "en"))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("Cleanup returned error: %v", err)
		}
	})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	result.HTTPServer.Handler().ServeHTTP(rec, req)

	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	rec = httptest.NewRecorder()
	result.HTTPServer.Handler().ServeHTTP(rec, req)

	if location := rec.Header().Get("Location"); location != "/pl" {
		t.Fatalf("expected redirect to default locale, got %q", location)
	}
}

func TestBuildRejectsUnsupportedLocales(t *testing.T) {
	t.Parallel()

	if _, err := Build(context.Background(), testDependencies(t, "xx")); err == nil {
		t.Fatalf("expected error for unsupported locale list")
	}
}

func TestBuildAdminImportsNothingFromEmptyDirectories(t *testing.T) {
	t.Parallel()

	result, err := BuildAdmin(testDependencies(t, "pl"), prompt.Unattended{}, true)
	if err != nil {
		t.Fatalf("BuildAdmin returned error: %v", err)
	}
	t.Cleanup(func() { _ = result.Cleanup() })

	if err := result.Admin.Populate(context.Background()); err != nil {
		t.Fatalf("Populate returned error: %v", err)
	}

	listing, err := result.Core.Repository.GetPagesOverall(context.Background(), "recipe", 10, 0)
	if err != nil {
		t.Fatalf("GetPagesOverall returned error: %v", err)
	}
	if listing.Total != 0 {
		t.Fatalf("expected no pages, got %d", listing.Total)
	}
}
