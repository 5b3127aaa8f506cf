package importer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	datacontent "bezcukru/app/internal/data/content"
	"bezcukru/app/internal/data/records"
	"bezcukru/app/internal/data/store"
	"bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
	"bezcukru/app/internal/platform/markdown"
)

func TestNewAdminRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewAdmin(Options{}); err == nil {
		t.Fatalf("expected error when repository is missing")
	}
}

func TestScanClassifiesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeContent(t, dir, "Soup pl.md", "# Zupa\n")
	writeContent(t, dir, "Soup en.MD", "# Soup\n")
	writeContent(t, dir, "Template example.md", "# Example\n")
	writeContent(t, dir, "readme.example.md", "# Example\n")
	writeContent(t, dir, "Soup pl.jpg", "jpg")
	writeContent(t, dir, "Pie.JPEG", "jpg")
	writeContent(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.md"), 0o755); err != nil {
		t.Fatalf("creating directory failed: %v", err)
	}

	admin := newTestAdmin(t, &stubRepository{}, &scriptedPrompter{}, t.TempDir(), t.TempDir(), false)

	markdownFiles, images, err := admin.Scan(dir, true)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	if len(markdownFiles) != 2 {
		t.Fatalf("expected 2 markdown files, got %+v", markdownFiles)
	}
	if markdownFiles[0].Name != "Soup en.MD" || markdownFiles[0].Language != "en" || markdownFiles[0].Permalink != "soup" {
		t.Fatalf("unexpected first markdown file %+v", markdownFiles[0])
	}

	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %+v", images)
	}
	if images[0].Name != "Pie.JPEG" || images[0].Language != "" || images[0].Permalink != "pie" {
		t.Fatalf("unexpected first image %+v", images[0])
	}
}

func TestScanStrictRejectsMissingLanguage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeContent(t, dir, "Soup.md", "# Soup\n")

	admin := newTestAdmin(t, &stubRepository{}, &scriptedPrompter{}, dir, t.TempDir(), true)

	_, _, err := admin.Scan(dir, true)
	var languageErr *LanguageError
	if !errors.As(err, &languageErr) {
		t.Fatalf("expected LanguageError, got %v", err)
	}
	if err.Error() != "Language is not recognized for Soup.md" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	files, _, err := admin.Scan(dir, false)
	if err != nil || len(files) != 1 {
		t.Fatalf("expected lenient scan to list the file, got %+v %v", files, err)
	}
}

func TestSlugifyAndDestination(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Soup":              "soup",
		"Apple Pie":         "apple-pie",
		"home":              "home",
		"  Soup -- 2 ":      "soup-2",
		"Żurek staropolski": "zurek-staropolski",
		"Борщ український":  "borsh-ukrayinskij",
		"Crème brûlée":      "creme-brulee",
	}
	for input, expected := range cases {
		if got := Slugify(input); got != expected {
			t.Errorf("Slugify(%q) = %q, expected %q", input, got, expected)
		}
	}

	if got := Destination(ImportPage, "home"); got != "/" {
		t.Errorf("expected home page at root, got %q", got)
	}
	if got := Destination(ImportPage, "about"); got != "/about" {
		t.Errorf("expected /about, got %q", got)
	}
	if got := Destination(ImportRecipe, "home"); got != "/recipe/home" {
		t.Errorf("expected /recipe/home, got %q", got)
	}
}

func TestPrepareBuildsRecipeItemWithImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeContent(t, dir, "Soup pl.md", "# Soup\n\nBeets.\n")
	writeContent(t, dir, "Soup pl.jpg", "jpg")

	repo := &stubRepository{titles: map[string]string{"/recipe/soup|pl": "Soup"}}
	admin := newTestAdmin(t, repo, &scriptedPrompter{}, dir, t.TempDir(), false)

	markdownFiles, images, err := admin.Scan(dir, false)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	item, err := admin.Prepare(context.Background(), markdownFiles[0], ImportRecipe, matchImage(markdownFiles[0], images))
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}

	if item.Permalink != "/recipe/soup" || item.Language != "pl" || item.Heading != "Soup" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.ImgPermalink != "soup.jpg" || item.ImgImportFromPath != filepath.Join(dir, "Soup pl.jpg") {
		t.Fatalf("unexpected image fields %+v", item)
	}
	if !item.PageAlreadyStored || item.ImageAlreadyStored {
		t.Fatalf("expected stored page without stored image, got %+v", item)
	}
}

func TestPrepareFailsWithoutHeading(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeContent(t, dir, "About en.md", "No heading here\n")

	admin := newTestAdmin(t, &stubRepository{}, &scriptedPrompter{}, t.TempDir(), dir, false)
	files, _, err := admin.Scan(dir, false)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	_, err = admin.Prepare(context.Background(), files[0], ImportPage, nil)
	if err == nil {
		t.Fatalf("expected missing heading error")
	}
	if !errors.Is(err, markdown.ErrHeadingMissing) && !strings.Contains(err.Error(), "cannot parse H1 heading") {
		t.Fatalf("expected missing heading error, got %v", err)
	}
}

func TestPrepareRejectsEmptySlug(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeContent(t, dir, "!!! en.md", "# Nothing\n")
	writeContent(t, dir, "Contact en.md", "---\nslug: \"???\"\n---\n# Contact\n")

	repo := &stubRepository{}
	admin := newTestAdmin(t, repo, &scriptedPrompter{}, t.TempDir(), dir, false)
	files, _, err := admin.Scan(dir, false)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected two files, got %+v", files)
	}

	for _, file := range files {
		_, err := admin.Prepare(context.Background(), file, ImportPage, nil)
		if !errors.Is(err, ErrEmptySlug) {
			t.Fatalf("expected ErrEmptySlug for %s, got %v", file.Name, err)
		}
	}
}

func TestPopulateInteractiveDeclineThenConfirm(t *testing.T) {
	t.Parallel()

	recipes := t.TempDir()
	pages := t.TempDir()
	writeContent(t, recipes, "Pie en.md", "# Pie\n")
	writeContent(t, recipes, "Pie pl.md", "# Placek\n")
	writeContent(t, recipes, "Pie.jpg", "jpg")
	writeContent(t, pages, "home en.md", "# Welcome\n")

	repo := &stubRepository{}
	prompter := &scriptedPrompter{
		selections: [][]int{{0, 1}, {0, 1}, {0}},
		confirms:   []bool{false, true, true},
	}

	admin := newTestAdmin(t, repo, prompter, recipes, pages, false)
	if err := admin.Populate(context.Background()); err != nil {
		t.Fatalf("Populate returned error: %v", err)
	}

	if len(repo.images) != 1 || repo.images[0].Permalink != "pie.jpg" {
		t.Fatalf("expected one image insert, got %+v", repo.images)
	}

	if len(repo.populated) != 1 {
		t.Fatalf("expected a single populate call, got %d", len(repo.populated))
	}
	written := repo.populated[0]

	if _, ok := written["/"]["en"]; !ok {
		t.Fatalf("expected home page at root, got %+v", written)
	}
	for _, locale := range []i18n.Locale{"en", "pl"} {
		page, ok := written["/recipe/pie"][locale]
		if !ok || page.ImageID == nil || *page.ImageID != 1 {
			t.Fatalf("expected %s pie with image, got %+v", locale, written["/recipe/pie"])
		}
	}

	if !strings.Contains(prompter.messages[1], "Do you confirm importing these recipes?") {
		t.Fatalf("expected recipe confirmation prompt, got %q", prompter.messages[1])
	}
}

func TestPopulateInteractiveRejectsSelectedFileWithoutLanguage(t *testing.T) {
	t.Parallel()

	recipes := t.TempDir()
	writeContent(t, recipes, "Pie.md", "# Pie\n")

	admin := newTestAdmin(t, &stubRepository{}, &scriptedPrompter{selections: [][]int{{0}}}, recipes, t.TempDir(), false)

	err := admin.Populate(context.Background())
	var languageErr *LanguageError
	if !errors.As(err, &languageErr) || languageErr.File != "Pie.md" {
		t.Fatalf("expected LanguageError for Pie.md, got %v", err)
	}
}

func TestPopulateUnattendedEndToEnd(t *testing.T) {
	t.Parallel()

	recipes := t.TempDir()
	pages := t.TempDir()
	writeContent(t, recipes, "Soup pl.md", "# Zupa\n\nBuraki.\n")
	writeContent(t, recipes, "Soup en.md", "# Soup\n\nBeets.\n")
	writeContent(t, recipes, "Soup pl.jpg", "jpeg-bytes")
	writeContent(t, recipes, "Soup example.md", "# Template\n")
	writeContent(t, pages, "home pl.md", "# Start\n")
	writeContent(t, pages, "About en.md", "---\nslug: about-us\n---\n# About\n")

	repo, s := newStoreRepository(t)
	admin := newTestAdmin(t, repo, unattended{}, recipes, pages, true)

	ctx := context.Background()
	if err := admin.Populate(ctx); err != nil {
		t.Fatalf("Populate returned error: %v", err)
	}

	soup, err := repo.GetPage(ctx, "/recipe/soup", "en")
	if err != nil || soup == nil || soup.Heading != "Soup" || soup.ImageID == nil {
		t.Fatalf("expected english soup with image, got %#v %v", soup, err)
	}

	data, err := repo.GetImageData(ctx, *soup.ImageID)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("expected image bytes, got %q %v", data, err)
	}

	home, err := repo.GetPage(ctx, "/", "pl")
	if err != nil || home == nil || home.Heading != "Start" {
		t.Fatalf("expected polish home page, got %#v %v", home, err)
	}

	about, err := repo.GetPage(ctx, "/about-us", "en")
	if err != nil || about == nil || strings.Contains(about.Markdown, "slug:") {
		t.Fatalf("expected about page under front matter slug, got %#v %v", about, err)
	}

	if err := admin.Populate(ctx); err != nil {
		t.Fatalf("second Populate returned error: %v", err)
	}

	revisions, err := repo.GetPagesOverall(ctx, content.KindRecipe, 0, 0)
	if err != nil {
		t.Fatalf("GetPagesOverall returned error: %v", err)
	}
	if revisions.Total != 4 {
		t.Fatalf("expected re-import to append revisions, got %d", revisions.Total)
	}

	images, err := store.Count[records.ImageRecord](ctx, s)
	if err != nil || images != 1 {
		t.Fatalf("expected a single stored image, got %d %v", images, err)
	}
}

func TestPopulateUnattendedFailsOnUnrecognizedLanguage(t *testing.T) {
	t.Parallel()

	recipes := t.TempDir()
	writeContent(t, recipes, "Soup pl.md", "# Zupa\n")
	writeContent(t, recipes, "Soup.md", "# Soup\n")

	repo := &stubRepository{}
	admin := newTestAdmin(t, repo, unattended{}, recipes, t.TempDir(), true)

	err := admin.Populate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Language is not recognized for Soup.md") {
		t.Fatalf("expected language error, got %v", err)
	}
	if len(repo.populated) != 0 || len(repo.images) != 0 {
		t.Fatalf("expected nothing written, got %+v %+v", repo.populated, repo.images)
	}
}

func TestRemoveWalksPagesAndDeletesSelection(t *testing.T) {
	t.Parallel()

	refs := make([]content.PageRef, 0, 12)
	for i := 12; i >= 1; i-- {
		refs = append(refs, content.PageRef{ID: int64(i), Permalink: "/en/recipe/r"})
	}

	repo := &stubRepository{overall: refs}
	prompter := &scriptedPrompter{
		choice:     1,
		selections: [][]int{{0}, {1}},
		confirms:   []bool{true},
	}

	admin := newTestAdmin(t, repo, prompter, t.TempDir(), t.TempDir(), false)
	if err := admin.Remove(context.Background()); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	if repo.overallKind != content.KindRecipe {
		t.Fatalf("expected recipe listing, got %q", repo.overallKind)
	}

	if len(repo.removed) != 2 || repo.removed[0] != 12 || repo.removed[1] != 1 {
		t.Fatalf("expected ids [12 1] removed, got %v", repo.removed)
	}

	if prompter.messages[1] != "Select recipes (page 1/2):" || prompter.messages[2] != "Select recipes (page 2/2):" {
		t.Fatalf("unexpected paging prompts %v", prompter.messages)
	}
	if !strings.HasPrefix(prompter.messages[3], "Remove these pages?\n#12 /en/recipe/r") {
		t.Fatalf("unexpected confirmation prompt %q", prompter.messages[3])
	}
}

func TestRemoveDeclinedKeepsPages(t *testing.T) {
	t.Parallel()

	repo := &stubRepository{overall: []content.PageRef{{ID: 3, Permalink: "/pl/about"}}}
	prompter := &scriptedPrompter{selections: [][]int{{0}}, confirms: []bool{false}}

	admin := newTestAdmin(t, repo, prompter, t.TempDir(), t.TempDir(), false)
	if err := admin.Remove(context.Background()); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	if repo.removed != nil {
		t.Fatalf("expected no removal, got %v", repo.removed)
	}
}

// helper utilities

func newTestAdmin(t *testing.T, repo content.Repository, prompter Prompter, recipesDir, pagesDir string, auto bool) *Admin {
	t.Helper()

	registry, err := i18n.NewRegistry([]string{"pl", "uk", "en"})
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	admin, err := NewAdmin(Options{
		Repository:  repo,
		Registry:    registry,
		Parser:      markdown.NewParser(),
		Prompter:    prompter,
		Logger:      logger,
		RecipesDir:  recipesDir,
		PagesDir:    pagesDir,
		Auto:        auto,
		Concurrency: 2,
	})
	if err != nil {
		t.Fatalf("NewAdmin returned error: %v", err)
	}

	return admin
}

func newStoreRepository(t *testing.T) (*datacontent.Repository, *store.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := store.New(store.Options{Path: filepath.Join(t.TempDir(), "database.db"), Logger: logger})
	if err != nil {
		t.Fatalf("store.New returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	repo, err := datacontent.NewRepository(datacontent.Options{Store: s, Logger: logger})
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, s
}

func writeContent(t *testing.T, dir, name, body string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s failed: %v", name, err)
	}
}

// stubs

type unattended struct{}

func (unattended) MultiSelect(_ string, options []string, _ int) ([]int, error) {
	all := make([]int, len(options))
	for i := range all {
		all[i] = i
	}
	return all, nil
}

func (unattended) SelectOne(string, []string) (int, error) {
	return 0, errors.New("interactive only")
}

func (unattended) Confirm(string) (bool, error) {
	return true, nil
}

type scriptedPrompter struct {
	mu         sync.Mutex
	selections [][]int
	confirms   []bool
	choice     int
	messages   []string
}

func (p *scriptedPrompter) MultiSelect(message string, _ []string, _ int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, message)
	if len(p.selections) == 0 {
		return nil, nil
	}
	next := p.selections[0]
	p.selections = p.selections[1:]
	return next, nil
}

func (p *scriptedPrompter) SelectOne(message string, _ []string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, message)
	return p.choice, nil
}

func (p *scriptedPrompter) Confirm(message string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, message)
	if len(p.confirms) == 0 {
		return false, nil
	}
	next := p.confirms[0]
	p.confirms = p.confirms[1:]
	return next, nil
}

type stubRepository struct {
	mu          sync.Mutex
	titles      map[string]string
	images      []content.ImageEntry
	populated   []content.ContentMap
	overall     []content.PageRef
	overallKind content.Kind
	removed     []int64
}

func (r *stubRepository) GetPage(context.Context, string, i18n.Locale) (*content.Page, error) {
	return nil, nil
}

func (r *stubRepository) GetPageTitle(_ context.Context, path string, locale i18n.Locale) (string, bool, error) {
	title, ok := r.titles[path+"|"+string(locale)]
	return title, ok, nil
}

func (r *stubRepository) GetPages(context.Context, i18n.Locale, content.Kind, int) ([]content.PageSummary, error) {
	return nil, nil
}

func (r *stubRepository) GetRecipes(context.Context, i18n.Locale, int) ([]content.PageSummary, error) {
	return nil, nil
}

func (r *stubRepository) GetArticles(context.Context, i18n.Locale, int) ([]content.PageSummary, error) {
	return nil, nil
}

func (r *stubRepository) GetPagesOverall(_ context.Context, kind content.Kind, limit, offset int) (content.PageListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.overallKind = kind
	end := offset + limit
	if end > len(r.overall) {
		end = len(r.overall)
	}
	if offset > end {
		offset = end
	}
	return content.PageListing{Pages: r.overall[offset:end], Total: int64(len(r.overall))}, nil
}

func (r *stubRepository) InsertImage(_ context.Context, entry content.ImageEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.images = append(r.images, entry)
	return int64(len(r.images)), nil
}

func (r *stubRepository) GetImageData(context.Context, int64) ([]byte, error) {
	return nil, nil
}

func (r *stubRepository) PopulatePages(_ context.Context, pages content.ContentMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.populated = append(r.populated, pages)
	return nil
}

func (r *stubRepository) RemovePages(_ context.Context, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removed = ids
	return nil
}
