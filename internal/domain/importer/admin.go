// Package importer moves markdown content from disk into the content repository.
package importer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"bezcukru/app/internal/domain/content"
	"bezcukru/app/internal/domain/i18n"
	applog "bezcukru/app/internal/platform/log"
)

const (
	removePageSize     = 10
	defaultConcurrency = 4
)

var removeKinds = []struct {
	label string
	kind  content.Kind
}{
	{label: "Articles", kind: content.KindArticle},
	{label: "Recipes", kind: content.KindRecipe},
}

// Options wires the admin with its collaborators.
type Options struct {
	Repository  content.Repository
	Registry    *i18n.Registry
	Parser      DocumentParser
	Prompter    Prompter
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RecipesDir  string
	PagesDir    string
	Auto        bool
	Concurrency int
}

// Admin runs the populate and remove flows.
type Admin struct {
	repo        content.Repository
	registry    *i18n.Registry
	parser      DocumentParser
	prompter    Prompter
	logger      *logrus.Logger
	sentryHub   *sentry.Hub
	recipesDir  string
	pagesDir    string
	auto        bool
	concurrency int
}

// NewAdmin validates the options and builds an Admin.
func NewAdmin(opts Options) (*Admin, error) {
	if opts.Repository == nil {
		return nil, eris.New("content repository is required")
	}
	if opts.Registry == nil {
		return nil, eris.New("locale registry is required")
	}
	if opts.Parser == nil {
		return nil, eris.New("document parser is required")
	}
	if opts.Prompter == nil {
		return nil, eris.New("prompter is required")
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Admin{
		repo:        opts.Repository,
		registry:    opts.Registry,
		parser:      opts.Parser,
		prompter:    opts.Prompter,
		logger:      opts.Logger,
		sentryHub:   opts.SentryHub,
		recipesDir:  opts.RecipesDir,
		pagesDir:    opts.PagesDir,
		auto:        opts.Auto,
		concurrency: concurrency,
	}, nil
}

// Populate selects recipes and then pages, stores their images once each and writes a new
// revision for every selected (path, locale).
func (a *Admin) Populate(ctx context.Context) error {
	recipes, err := a.selectItems(ctx, ImportRecipe, a.recipesDir)
	if err != nil {
		a.recordError(logrus.Fields{"kind": ImportRecipe}, err, "selecting recipes")
		return err
	}

	pages, err := a.selectItems(ctx, ImportPage, a.pagesDir)
	if err != nil {
		a.recordError(logrus.Fields{"kind": ImportPage}, err, "selecting pages")
		return err
	}

	if err := a.Commit(ctx, append(pages, recipes...)); err != nil {
		a.recordError(nil, err, "committing import")
		return err
	}

	return nil
}

// Commit stores the images referenced by items and then all page revisions.
func (a *Admin) Commit(ctx context.Context, items []SelectedItem) error {
	imageIDs := make(map[string]int64)
	for _, item := range items {
		if item.ImgPermalink == "" || item.ImgImportFromPath == "" {
			continue
		}
		if _, done := imageIDs[item.ImgPermalink]; done {
			continue
		}

		id, err := a.repo.InsertImage(ctx, content.ImageEntry{Permalink: item.ImgPermalink, Path: item.ImgImportFromPath})
		if err != nil {
			return eris.Wrapf(err, "storing image %s", item.ImgPermalink)
		}
		imageIDs[item.ImgPermalink] = id
	}

	pages := make(content.ContentMap)
	for _, item := range items {
		page := content.PageContent{Heading: item.Heading, Markdown: item.Markdown}
		if id, ok := imageIDs[item.ImgPermalink]; ok && item.ImgPermalink != "" {
			page.ImageID = &id
		}
		pages.Add(item.Permalink, item.Language, page)
	}

	if len(pages) == 0 {
		a.entry().Info("nothing to import")
		return nil
	}

	if err := a.repo.PopulatePages(ctx, pages); err != nil {
		return eris.Wrap(err, "writing pages")
	}

	a.entry().WithFields(logrus.Fields{"pages": len(items), "images": len(imageIDs)}).Info("import finished")
	return nil
}

func (a *Admin) selectItems(ctx context.Context, kind ImportKind, dir string) ([]SelectedItem, error) {
	markdownFiles, images, err := a.Scan(dir, a.auto)
	if err != nil {
		return nil, err
	}

	if len(markdownFiles) == 0 {
		a.entry().WithFields(logrus.Fields{"kind": kind, "dir": dir}).Warn("no markdown files found")
		return nil, nil
	}

	var selected []SelectedItem
	remaining := markdownFiles

	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "selecting items")
		}

		names := make([]string, 0, len(remaining))
		for _, file := range remaining {
			names = append(names, file.Name)
		}

		picked, err := a.prompter.MultiSelect(fmt.Sprintf("Select %ss to import:", kind), names, 0)
		if err != nil {
			return nil, eris.Wrap(err, "prompting for files")
		}
		if len(picked) == 0 {
			break
		}

		chosen, rest, err := split(remaining, picked)
		if err != nil {
			return nil, err
		}

		for _, file := range chosen {
			if file.Language == "" {
				return nil, &LanguageError{File: file.Name}
			}
		}

		items, err := a.prepareAll(ctx, chosen, kind, images)
		if err != nil {
			return nil, err
		}

		ok, err := a.prompter.Confirm(fmt.Sprintf("%sDo you confirm importing these %ss?", describe(items), kind))
		if err != nil {
			return nil, eris.Wrap(err, "prompting for confirmation")
		}
		if !ok {
			a.entry().WithField("kind", kind).Info("import declined")
			continue
		}

		selected = append(selected, items...)
		remaining = rest
		if len(remaining) == 0 {
			break
		}

		more, err := a.prompter.Confirm(fmt.Sprintf("Select more %ss?", kind))
		if err != nil {
			return nil, eris.Wrap(err, "prompting for more files")
		}
		if !more {
			break
		}
	}

	return selected, nil
}

func split(files []File, picked []int) ([]File, []File, error) {
	chosenSet := make(map[int]struct{}, len(picked))
	for _, index := range picked {
		if index < 0 || index >= len(files) {
			return nil, nil, eris.Errorf("selection index %d out of range", index)
		}
		chosenSet[index] = struct{}{}
	}

	chosen := make([]File, 0, len(chosenSet))
	rest := make([]File, 0, len(files)-len(chosenSet))
	for i, file := range files {
		if _, ok := chosenSet[i]; ok {
			chosen = append(chosen, file)
		} else {
			rest = append(rest, file)
		}
	}

	return chosen, rest, nil
}

// Remove lets the operator pick stored revisions of one kind, page by page, and deletes them
// after confirmation.
func (a *Admin) Remove(ctx context.Context) error {
	labels := make([]string, 0, len(removeKinds))
	for _, option := range removeKinds {
		labels = append(labels, option.label)
	}

	index, err := a.prompter.SelectOne("Select type:", labels)
	if err != nil {
		return eris.Wrap(err, "prompting for page type")
	}
	if index < 0 || index >= len(removeKinds) {
		return eris.Errorf("selection index %d out of range", index)
	}
	kind := removeKinds[index].kind

	var selected []content.PageRef
	for page, pages := 0, 1; page < pages; {
		listing, err := a.repo.GetPagesOverall(ctx, kind, removePageSize, removePageSize*page)
		if err != nil {
			a.recordError(logrus.Fields{"kind": kind}, err, "listing pages for removal")
			return err
		}

		page++
		pages = int(math.Ceil(float64(listing.Total) / removePageSize))
		if len(listing.Pages) == 0 {
			break
		}

		options := make([]string, 0, len(listing.Pages))
		for _, ref := range listing.Pages {
			options = append(options, fmt.Sprintf("#%d %s", ref.ID, ref.Permalink))
		}

		picked, err := a.prompter.MultiSelect(fmt.Sprintf("Select %ss (page %d/%d):", kind, page, pages), options, removePageSize)
		if err != nil {
			return eris.Wrap(err, "prompting for pages")
		}
		for _, i := range picked {
			if i < 0 || i >= len(listing.Pages) {
				return eris.Errorf("selection index %d out of range", i)
			}
			selected = append(selected, listing.Pages[i])
		}
	}

	if len(selected) == 0 {
		a.entry().WithField("kind", kind).Info("nothing selected for removal")
		return nil
	}

	lines := make([]string, 0, len(selected))
	ids := make([]int64, 0, len(selected))
	for _, ref := range selected {
		lines = append(lines, fmt.Sprintf("#%d %s", ref.ID, ref.Permalink))
		ids = append(ids, ref.ID)
	}

	ok, err := a.prompter.Confirm("Remove these pages?\n" + strings.Join(lines, "\n"))
	if err != nil {
		return eris.Wrap(err, "prompting for removal confirmation")
	}
	if !ok {
		a.entry().WithField("kind", kind).Info("removal declined")
		return nil
	}

	if err := a.repo.RemovePages(ctx, ids); err != nil {
		a.recordError(logrus.Fields{"ids": ids}, err, "removing pages")
		return err
	}

	a.entry().WithFields(logrus.Fields{"kind": kind, "removed": len(ids)}).Info("pages removed")
	return nil
}

func (a *Admin) entry() *logrus.Entry {
	logger := a.logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return applog.WithComponent(logger, "content.admin")
}

func (a *Admin) recordError(fields logrus.Fields, err error, message string) {
	entry := a.entry()
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	applog.ReportError(entry, a.sentryHub, err, message)
}
