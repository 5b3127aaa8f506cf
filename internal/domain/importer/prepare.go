package importer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bezcukru/app/internal/domain/i18n"
)

// ImportKind is the destination of an imported markdown file.
type ImportKind string

const (
	ImportRecipe ImportKind = "recipe"
	ImportPage   ImportKind = "page"
)

const homeSlug = "home"

// ErrEmptySlug is returned when a file name or front matter slug has no usable characters.
var ErrEmptySlug = eris.New("permalink slug is empty")

// SelectedItem is a markdown file prepared for import.
type SelectedItem struct {
	ImportAs          ImportKind
	Language          i18n.Locale
	Heading           string
	Permalink         string
	PageAlreadyStored bool
	Markdown          string
	Origin            string
	// ImgPermalink and ImgImportFromPath are empty when no image matched.
	ImgPermalink       string
	ImgImportFromPath  string
	ImageAlreadyStored bool
}

// Destination computes the page path for a slug imported as kind. The page named home becomes
// the site root.
func Destination(kind ImportKind, slug string) string {
	if kind == ImportRecipe {
		return path.Join("/", "recipe", slug)
	}
	if slug == homeSlug {
		return "/"
	}
	return path.Join("/", slug)
}

// Prepare reads and parses file and probes the repository for what is already stored.
func (a *Admin) Prepare(ctx context.Context, file File, kind ImportKind, image *File) (SelectedItem, error) {
	entry := a.entry().WithFields(logrus.Fields{"file": file.Name, "kind": kind})

	if image == nil {
		entry.Warn("no matching image found")
	}

	source, err := os.ReadFile(file.Path)
	if err != nil {
		return SelectedItem{}, eris.Wrapf(err, "reading %s", file.Name)
	}

	doc, err := a.parser.ParseDocument(source)
	if err != nil {
		return SelectedItem{}, eris.Wrapf(err, "parsing %s", file.Name)
	}

	slug := file.Permalink
	if doc.Slug != "" {
		slug = Slugify(doc.Slug)
	}
	if slug == "" {
		return SelectedItem{}, eris.Wrapf(ErrEmptySlug, "importing %s", file.Name)
	}
	permalink := Destination(kind, slug)

	_, pageStored, err := a.repo.GetPageTitle(ctx, permalink, file.Language)
	if err != nil {
		return SelectedItem{}, eris.Wrapf(err, "probing stored page %s", permalink)
	}

	current, err := a.repo.GetPage(ctx, permalink, file.Language)
	if err != nil {
		return SelectedItem{}, eris.Wrapf(err, "probing stored image for %s", permalink)
	}

	item := SelectedItem{
		ImportAs:           kind,
		Language:           file.Language,
		Heading:            doc.Heading,
		Permalink:          permalink,
		PageAlreadyStored:  pageStored,
		Markdown:           doc.Markdown,
		Origin:             file.Path,
		ImageAlreadyStored: current != nil && current.ImageID != nil,
	}

	if image != nil {
		item.ImgPermalink = image.Permalink + filepath.Ext(image.Path)
		item.ImgImportFromPath = image.Path
	}

	entry.WithField("permalink", permalink).Debug("prepared item")
	return item, nil
}

func (a *Admin) prepareAll(ctx context.Context, files []File, kind ImportKind, images []File) ([]SelectedItem, error) {
	items := make([]SelectedItem, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)

	for i, file := range files {
		group.Go(func() error {
			item, err := a.Prepare(groupCtx, file, kind, matchImage(file, images))
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

func describe(items []SelectedItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "[%s] %s %s %q", item.ImportAs, item.Language, item.Permalink, item.Heading)
		if item.ImgPermalink != "" {
			fmt.Fprintf(&b, " image=%s", item.ImgPermalink)
		}
		fmt.Fprintf(&b, " stored=%s image_stored=%s\n", yesNo(item.PageAlreadyStored), yesNo(item.ImageAlreadyStored))
	}
	return b.String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
