package content

import (
	"strings"

	"bezcukru/app/internal/domain/i18n"
)

// RecipePrefix marks the paths of recipe pages.
const RecipePrefix = "/recipe/"

// HomePath is the path of the landing page in every locale.
const HomePath = "/"

// DefaultListLimit applies to listings called without a positive limit.
const DefaultListLimit = 10

// Kind splits pages into recipes and articles.
type Kind string

const (
	KindRecipe  Kind = "recipe"
	KindArticle Kind = "article"
)

// KindOf classifies a page path. The home page is neither kind.
func KindOf(path string) (Kind, bool) {
	switch {
	case strings.HasPrefix(path, RecipePrefix):
		return KindRecipe, true
	case path == HomePath:
		return "", false
	default:
		return KindArticle, true
	}
}

// Page is the current revision of a page in one locale.
type Page struct {
	ID       int64
	Path     string
	Locale   i18n.Locale
	Heading  string
	Markdown string
	ImageID  *int64
}

// PageSummary is a listing entry. URL is the locale followed by the path, without a leading
// slash.
type PageSummary struct {
	Heading string
	URL     string
	ImageID *int64
}

// PageRef identifies any stored revision for operator tooling.
type PageRef struct {
	ID        int64
	Permalink string
}

// PageListing is one window of PageRefs plus the total across all windows.
type PageListing struct {
	Pages []PageRef
	Total int64
}

// PageContent is what gets written for one (path, locale) pair.
type PageContent struct {
	Heading  string
	Markdown string
	ImageID  *int64
}

// ContentMap groups new revisions by path and locale.
type ContentMap map[string]map[i18n.Locale]PageContent

// Add records content for path in locale, replacing an earlier entry for the same pair.
func (m ContentMap) Add(path string, locale i18n.Locale, content PageContent) {
	byLocale, ok := m[path]
	if !ok {
		byLocale = make(map[i18n.Locale]PageContent)
		m[path] = byLocale
	}
	byLocale[locale] = content
}

// ImageEntry points at an image file to import under a permalink.
type ImageEntry struct {
	Permalink string
	Path      string
}
