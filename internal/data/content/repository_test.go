package content

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"bezcukru/app/internal/data/records"
	"bezcukru/app/internal/data/store"
	domaincontent "bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
)

func TestNewRepositoryRequiresStore(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(Options{}); err == nil {
		t.Fatalf("expected error when store is nil")
	}
}

func TestGetPageReturnsNilForMissingPage(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	page, err := repo.GetPage(context.Background(), "/missing", "en")
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if page != nil {
		t.Fatalf("expected nil page for missing path, got %#v", page)
	}
}

func TestLatestRevisionWins(t *testing.T) {
	t.Parallel()

	repo, s := setupRepository(t)
	ctx := context.Background()

	populate(t, repo, "/", "pl", "H1")
	populate(t, repo, "/", "pl", "H2")

	page, err := repo.GetPage(ctx, "/", "pl")
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if page == nil || page.Heading != "H2" {
		t.Fatalf("expected latest heading H2, got %#v", page)
	}

	title, ok, err := repo.GetPageTitle(ctx, "/", "pl")
	if err != nil || !ok || title != "H2" {
		t.Fatalf("expected title H2, got %q %v %v", title, ok, err)
	}

	title, ok, err = repo.GetPageTitle(ctx, "/", "en")
	if err != nil {
		t.Fatalf("GetPageTitle returned error: %v", err)
	}
	if ok || title != "" {
		t.Fatalf("expected no English title, got %q", title)
	}

	revisions, err := store.Count[records.PageRecord](ctx, s, store.Eq("path", "/"))
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if revisions != 2 {
		t.Fatalf("expected both revisions to be kept, got %d", revisions)
	}

	populate(t, repo, "/", "pl", "H3")

	page, err = repo.GetPage(ctx, "/", "pl")
	if err != nil || page == nil || page.Heading != "H3" {
		t.Fatalf("expected read to reflect H3 immediately, got %#v %v", page, err)
	}
}

func TestListingsPartitionByKind(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	populate(t, repo, "/", "en", "Home")
	populate(t, repo, "/recipe/pie", "en", "Pie v1")
	populate(t, repo, "/about", "en", "About")
	populate(t, repo, "/recipe/pie", "en", "Pie v2")
	populate(t, repo, "/recipes-overview", "en", "Overview")
	populate(t, repo, "/recipe/soup", "pl", "Zupa")

	recipes, err := repo.GetRecipes(ctx, "en", 0)
	if err != nil {
		t.Fatalf("GetRecipes returned error: %v", err)
	}
	if len(recipes) != 1 || recipes[0].Heading != "Pie v2" || recipes[0].URL != "en/recipe/pie" {
		t.Fatalf("expected latest pie recipe only, got %+v", recipes)
	}

	articles, err := repo.GetArticles(ctx, "en", 0)
	if err != nil {
		t.Fatalf("GetArticles returned error: %v", err)
	}

	if len(articles) != 2 {
		t.Fatalf("expected two articles, got %+v", articles)
	}
	for _, article := range articles {
		path := strings.TrimPrefix(article.URL, "en")
		if strings.HasPrefix(path, domaincontent.RecipePrefix) || path == domaincontent.HomePath {
			t.Fatalf("article listing leaked %q", article.URL)
		}
	}
	if articles[0].Heading != "Overview" || articles[1].Heading != "About" {
		t.Fatalf("expected newest article first, got %+v", articles)
	}
}

func TestConcurrentRecipeListings(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		populate(t, repo, fmt.Sprintf("/recipe/en-%d", i), "en", fmt.Sprintf("Recipe %d", i))
	}
	for i := 0; i < 3; i++ {
		populate(t, repo, fmt.Sprintf("/recipe/pl-%d", i), "pl", fmt.Sprintf("Przepis %d", i))
	}

	var wg sync.WaitGroup
	results := make([][]domaincontent.PageSummary, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = repo.GetRecipes(ctx, "en", 5)
		}()
	}
	wg.Wait()

	for i, summaries := range results {
		if errs[i] != nil {
			t.Fatalf("GetRecipes returned error: %v", errs[i])
		}
		if len(summaries) != 5 {
			t.Fatalf("expected 5 recipes, got %d", len(summaries))
		}
		for j, summary := range summaries {
			expected := fmt.Sprintf("Recipe %d", 6-j)
			if summary.Heading != expected {
				t.Fatalf("expected %q at %d, got %q", expected, j, summary.Heading)
			}
			if !strings.HasPrefix(summary.URL, "en/recipe/") {
				t.Fatalf("expected derived url, got %q", summary.URL)
			}
		}
	}
}

func TestInsertImageDeduplicatesByPermalink(t *testing.T) {
	t.Parallel()

	repo, s := setupRepository(t)
	ctx := context.Background()

	path := writeFile(t, "soup.jpg", "jpeg-bytes")

	first, err := repo.InsertImage(ctx, domaincontent.ImageEntry{Permalink: "soup.jpg", Path: path})
	if err != nil {
		t.Fatalf("InsertImage returned error: %v", err)
	}

	second, err := repo.InsertImage(ctx, domaincontent.ImageEntry{Permalink: "soup.jpg", Path: path})
	if err != nil {
		t.Fatalf("InsertImage returned error: %v", err)
	}

	if first != second || first == 0 {
		t.Fatalf("expected the same id twice, got %d and %d", first, second)
	}

	count, err := store.Count[records.ImageRecord](ctx, s)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one image row, got %d", count)
	}

	data, err := repo.GetImageData(ctx, first)
	if err != nil {
		t.Fatalf("GetImageData returned error: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("expected stored bytes, got %q", data)
	}

	missing, err := repo.GetImageData(ctx, first+100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil data for missing image, got %v %v", missing, err)
	}
}

func TestInsertImageReportsMissingFile(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)

	_, err := repo.InsertImage(context.Background(), domaincontent.ImageEntry{
		Permalink: "ghost.jpg",
		Path:      filepath.Join(t.TempDir(), "ghost.jpg"),
	})
	if !eris.Is(err, domaincontent.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestPopulatePagesWritesEveryLocaleWithImage(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	imageID, err := repo.InsertImage(ctx, domaincontent.ImageEntry{Permalink: "soup.jpg", Path: writeFile(t, "soup.jpg", "x")})
	if err != nil {
		t.Fatalf("InsertImage returned error: %v", err)
	}

	pages := domaincontent.ContentMap{}
	pages.Add("/recipe/soup", "pl", domaincontent.PageContent{Heading: "Zupa", Markdown: "# Zupa", ImageID: &imageID})
	pages.Add("/recipe/soup", "en", domaincontent.PageContent{Heading: "Soup", Markdown: "# Soup", ImageID: &imageID})
	pages.Add("/about", "en", domaincontent.PageContent{Heading: "About", Markdown: "# About"})

	if err := repo.PopulatePages(ctx, pages); err != nil {
		t.Fatalf("PopulatePages returned error: %v", err)
	}

	for _, locale := range []i18n.Locale{"pl", "en"} {
		page, err := repo.GetPage(ctx, "/recipe/soup", locale)
		if err != nil {
			t.Fatalf("GetPage returned error: %v", err)
		}
		if page == nil || page.ImageID == nil || *page.ImageID != imageID {
			t.Fatalf("expected %s soup with image %d, got %#v", locale, imageID, page)
		}
	}

	about, err := repo.GetPage(ctx, "/about", "en")
	if err != nil || about == nil || about.ImageID != nil || about.Markdown != "# About" {
		t.Fatalf("expected about page without image, got %#v %v", about, err)
	}
}

func TestPagesOverallAndRemoval(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	populate(t, repo, "/recipe/pie", "en", "Pie")
	populate(t, repo, "/recipe/pie", "pl", "Placek")
	populate(t, repo, "/about", "en", "About")
	populate(t, repo, "/recipe/pie", "en", "Pie v2")

	listing, err := repo.GetPagesOverall(ctx, domaincontent.KindRecipe, 2, 0)
	if err != nil {
		t.Fatalf("GetPagesOverall returned error: %v", err)
	}
	if listing.Total != 3 || len(listing.Pages) != 2 {
		t.Fatalf("expected window of 2 out of 3, got %+v", listing)
	}
	if listing.Pages[0].Permalink != "/en/recipe/pie" || listing.Pages[1].Permalink != "/pl/recipe/pie" {
		t.Fatalf("expected newest first permalinks, got %+v", listing.Pages)
	}

	next, err := repo.GetPagesOverall(ctx, domaincontent.KindRecipe, 2, 2)
	if err != nil {
		t.Fatalf("GetPagesOverall returned error: %v", err)
	}
	if len(next.Pages) != 1 {
		t.Fatalf("expected last window with one page, got %+v", next.Pages)
	}

	if err := repo.RemovePages(ctx, []int64{listing.Pages[0].ID, 12345}); !eris.Is(err, store.ErrDeleteMismatch) {
		t.Fatalf("expected strict delete failure, got %v", err)
	}

	page, err := repo.GetPage(ctx, "/recipe/pie", "en")
	if err != nil || page == nil || page.Heading != "Pie v2" {
		t.Fatalf("expected failed removal to keep rows, got %#v %v", page, err)
	}

	if err := repo.RemovePages(ctx, []int64{listing.Pages[0].ID}); err != nil {
		t.Fatalf("RemovePages returned error: %v", err)
	}

	page, err = repo.GetPage(ctx, "/recipe/pie", "en")
	if err != nil || page == nil || page.Heading != "Pie" {
		t.Fatalf("expected previous revision to become current, got %#v %v", page, err)
	}

	if _, err := repo.GetPagesOverall(ctx, domaincontent.Kind("video"), 10, 0); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

// helper utilities

func setupRepository(t *testing.T) (*Repository, *store.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := store.New(store.Options{Path: filepath.Join(t.TempDir(), "database.db"), Logger: logger})
	if err != nil {
		t.Fatalf("store.New returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := s.Close(); closeErr != nil {
			t.Errorf("closing store failed: %v", closeErr)
		}
	})

	repo, err := NewRepository(Options{Store: s, Logger: logger, Concurrency: 2})
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, s
}

func populate(t *testing.T, repo *Repository, path string, locale i18n.Locale, heading string) {
	t.Helper()

	pages := domaincontent.ContentMap{}
	pages.Add(path, locale, domaincontent.PageContent{Heading: heading, Markdown: "# " + heading})
	if err := repo.PopulatePages(context.Background(), pages); err != nil {
		t.Fatalf("PopulatePages returned error: %v", err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s failed: %v", name, err)
	}
	return path
}
