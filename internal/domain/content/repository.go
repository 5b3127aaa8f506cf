package content

import (
	"context"

	"github.com/rotisserie/eris"

	"bezcukru/app/internal/domain/i18n"
)

// ErrFileNotFound is returned when an image file to import does not exist.
var ErrFileNotFound = eris.New("file not found")

// Repository defines the content operations used by the site and the admin tooling.
// Lookups of absent content return nil values without an error.
type Repository interface {
	GetPage(ctx context.Context, path string, locale i18n.Locale) (*Page, error)
	GetPageTitle(ctx context.Context, path string, locale i18n.Locale) (string, bool, error)
	GetPages(ctx context.Context, locale i18n.Locale, kind Kind, limit int) ([]PageSummary, error)
	GetRecipes(ctx context.Context, locale i18n.Locale, limit int) ([]PageSummary, error)
	GetArticles(ctx context.Context, locale i18n.Locale, limit int) ([]PageSummary, error)
	GetPagesOverall(ctx context.Context, kind Kind, limit, offset int) (PageListing, error)
	InsertImage(ctx context.Context, entry ImageEntry) (int64, error)
	GetImageData(ctx context.Context, id int64) ([]byte, error)
	PopulatePages(ctx context.Context, pages ContentMap) error
	RemovePages(ctx context.Context, ids []int64) error
}
