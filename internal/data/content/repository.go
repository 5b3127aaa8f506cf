package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bezcukru/app/internal/data/records"
	"bezcukru/app/internal/data/store"
	domaincontent "bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
)

const defaultConcurrency = 4

var summaryAttributes = []string{"id", "path", "locale", "heading", "image_id"}

// Options configures the store-backed content repository.
type Options struct {
	Store       *store.Store
	Logger      *logrus.Logger
	Concurrency int
}

// Repository persists pages and images in the record store.
type Repository struct {
	store       *store.Store
	logger      *logrus.Logger
	concurrency int
}

var _ domaincontent.Repository = (*Repository)(nil)

// NewRepository constructs a content repository on top of the record store.
func NewRepository(opts Options) (*Repository, error) {
	if opts.Store == nil {
		return nil, eris.New("record store is required")
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Repository{store: opts.Store, logger: opts.Logger, concurrency: concurrency}, nil
}

// GetPage returns the latest revision of path in locale, or nil when it has none.
func (r *Repository) GetPage(ctx context.Context, path string, locale i18n.Locale) (*domaincontent.Page, error) {
	record, err := store.GetOne[records.PageRecord](ctx, r.store, store.Query{
		Where: []store.Predicate{store.Eq("path", path), store.Eq("locale", string(locale))},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetching page %s in %s", path, locale)
	}

	return toDomainPage(record), nil
}

// GetPageTitle returns the heading of the latest revision of path in locale.
func (r *Repository) GetPageTitle(ctx context.Context, path string, locale i18n.Locale) (string, bool, error) {
	record, err := store.GetOne[records.PageRecord](ctx, r.store, store.Query{
		Where:      []store.Predicate{store.Eq("path", path), store.Eq("locale", string(locale))},
		Attributes: []string{"heading"},
	})
	if err != nil {
		return "", false, eris.Wrapf(err, "fetching page title %s in %s", path, locale)
	}
	if record == nil {
		return "", false, nil
	}

	return record.Heading, true, nil
}

// GetRecipes lists the newest recipes in locale.
func (r *Repository) GetRecipes(ctx context.Context, locale i18n.Locale, limit int) ([]domaincontent.PageSummary, error) {
	return r.GetPages(ctx, locale, domaincontent.KindRecipe, limit)
}

// GetArticles lists the newest articles in locale. The home page is never listed.
func (r *Repository) GetArticles(ctx context.Context, locale i18n.Locale, limit int) ([]domaincontent.PageSummary, error) {
	return r.GetPages(ctx, locale, domaincontent.KindArticle, limit)
}

// GetPages lists the latest revision of every page of kind in locale, newest first.
func (r *Repository) GetPages(ctx context.Context, locale i18n.Locale, kind domaincontent.Kind, limit int) ([]domaincontent.PageSummary, error) {
	if limit <= 0 {
		limit = domaincontent.DefaultListLimit
	}

	where, err := kindPredicates(kind)
	if err != nil {
		return nil, err
	}
	where = append([]store.Predicate{store.Eq("locale", string(locale))}, where...)

	rows, err := store.Get[records.PageRecord](ctx, r.store, store.Query{
		Where:      where,
		LatestBy:   []string{"path"},
		Order:      []store.Order{{Column: "id", Direction: store.Descending}},
		Limit:      limit,
		Attributes: summaryAttributes,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "listing %s pages in %s", kind, locale)
	}

	summaries := make([]domaincontent.PageSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, domaincontent.PageSummary{
			Heading: row.Heading,
			URL:     row.Locale + row.Path,
			ImageID: row.ImageID,
		})
	}

	return summaries, nil
}

// GetPagesOverall lists every stored revision of kind across locales, newest first, with the
// total number of such revisions.
func (r *Repository) GetPagesOverall(ctx context.Context, kind domaincontent.Kind, limit, offset int) (domaincontent.PageListing, error) {
	where, err := kindPredicates(kind)
	if err != nil {
		return domaincontent.PageListing{}, err
	}

	total, err := store.Count[records.PageRecord](ctx, r.store, where...)
	if err != nil {
		return domaincontent.PageListing{}, eris.Wrapf(err, "counting %s pages", kind)
	}

	rows, err := store.Get[records.PageRecord](ctx, r.store, store.Query{
		Where:      where,
		Order:      []store.Order{{Column: "id", Direction: store.Descending}},
		Limit:      limit,
		Offset:     offset,
		Attributes: []string{"id", "path", "locale"},
	})
	if err != nil {
		return domaincontent.PageListing{}, eris.Wrapf(err, "listing %s pages", kind)
	}

	refs := make([]domaincontent.PageRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, domaincontent.PageRef{ID: row.ID, Permalink: "/" + row.Locale + row.Path})
	}

	return domaincontent.PageListing{Pages: refs, Total: total}, nil
}

// InsertImage stores the file at entry.Path under entry.Permalink and returns the image id.
// An image already stored under the permalink is reused as is.
func (r *Repository) InsertImage(ctx context.Context, entry domaincontent.ImageEntry) (int64, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, eris.Wrapf(domaincontent.ErrFileNotFound, "image %s", entry.Path)
		}
		r.logError(logrus.Fields{"path": entry.Path}, err, "reading image file")
		return 0, eris.Wrapf(err, "reading image %s", entry.Path)
	}

	result, err := store.InsertOne(ctx, r.store, &records.ImageRecord{Permalink: entry.Permalink, Data: data}, store.OnConflictDoNothing())
	if err != nil {
		return 0, eris.Wrapf(err, "inserting image %s", entry.Permalink)
	}
	if result.RowsAffected > 0 {
		return result.ID, nil
	}

	existing, err := store.GetOne[records.ImageRecord](ctx, r.store, store.Query{
		Where:      []store.Predicate{store.Eq("permalink", entry.Permalink)},
		Attributes: []string{"id"},
	})
	if err != nil {
		return 0, eris.Wrapf(err, "looking up image %s", entry.Permalink)
	}
	if existing == nil {
		err := eris.Errorf("image %s was neither inserted nor found", entry.Permalink)
		r.logError(logrus.Fields{"permalink": entry.Permalink}, err, "image insert invariant violated")
		return 0, err
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"component": "content.repository", "permalink": entry.Permalink}).Debug("image already stored")
	}

	return existing.ID, nil
}

// GetImageData returns the bytes of image id, or nil when it does not exist.
func (r *Repository) GetImageData(ctx context.Context, id int64) ([]byte, error) {
	record, err := store.GetOne[records.ImageRecord](ctx, r.store, store.Query{
		Where:      []store.Predicate{store.Eq("id", id)},
		Attributes: []string{"id", "data"},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetching image %d", id)
	}
	if record == nil {
		return nil, nil
	}

	return record.Data, nil
}

// PopulatePages appends a new revision for every (path, locale) entry. Existing pages are kept
// as history and reported at warn level. Inserts are not transactional: the first failure is
// returned and earlier inserts stay.
func (r *Repository) PopulatePages(ctx context.Context, pages domaincontent.ContentMap) error {
	type target struct {
		path    string
		locale  i18n.Locale
		content domaincontent.PageContent
	}

	targets := make([]target, 0, len(pages))
	for path, byLocale := range pages {
		for locale, content := range byLocale {
			targets = append(targets, target{path: path, locale: locale, content: content})
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].path != targets[j].path {
			return targets[i].path < targets[j].path
		}
		return targets[i].locale < targets[j].locale
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	for _, item := range targets {
		group.Go(func() error {
			return r.insertRevision(groupCtx, item.path, item.locale, item.content)
		})
	}

	if err := group.Wait(); err != nil {
		return eris.Wrap(err, "populating pages")
	}

	return nil
}

func (r *Repository) insertRevision(ctx context.Context, path string, locale i18n.Locale, page domaincontent.PageContent) error {
	where := []store.Predicate{store.Eq("path", path), store.Eq("locale", string(locale))}

	existing, err := store.Count[records.PageRecord](ctx, r.store, where...)
	if err != nil {
		return eris.Wrapf(err, "probing page %s in %s", path, locale)
	}
	if existing > 0 && r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"component": "content.repository",
			"path":      path,
			"locale":    locale,
		}).Warn("new version of page has been written")
	}

	record := &records.PageRecord{
		Path:    path,
		Locale:  string(locale),
		Heading: page.Heading,
		Body:    page.Markdown,
		ImageID: page.ImageID,
	}
	if _, err := store.InsertOne(ctx, r.store, record); err != nil {
		return eris.Wrapf(err, "inserting page %s in %s", path, locale)
	}

	return nil
}

// RemovePages deletes the given revisions, all or nothing.
func (r *Repository) RemovePages(ctx context.Context, ids []int64) error {
	if err := store.RemoveByIDs[records.PageRecord](ctx, r.store, ids); err != nil {
		return eris.Wrap(err, "removing pages")
	}
	return nil
}

func kindPredicates(kind domaincontent.Kind) ([]store.Predicate, error) {
	switch kind {
	case domaincontent.KindRecipe:
		return []store.Predicate{store.HasPrefix("path", domaincontent.RecipePrefix)}, nil
	case domaincontent.KindArticle:
		return []store.Predicate{
			store.NotHasPrefix("path", domaincontent.RecipePrefix),
			store.NotEq("path", domaincontent.HomePath),
		}, nil
	default:
		return nil, eris.Errorf("unknown page kind %q", kind)
	}
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error()).WithField("component", "content.repository")
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func toDomainPage(record *records.PageRecord) *domaincontent.Page {
	if record == nil {
		return nil
	}

	return &domaincontent.Page{
		ID:       record.ID,
		Path:     strings.TrimSpace(record.Path),
		Locale:   i18n.Locale(record.Locale),
		Heading:  record.Heading,
		Markdown: record.Body,
		ImageID:  record.ImageID,
	}
}
