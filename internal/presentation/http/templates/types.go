package templates

// SiteName is appended to every document title.
const SiteName = "Bez cukru"

// LocaleLink is one entry of the locale switcher.
type LocaleLink struct {
	Locale  string
	Flag    string
	Href    string
	Current bool
}

// LayoutData carries the values shared by every page.
type LayoutData struct {
	Title    string
	Locale   string
	HomeLink string
	Links    []LocaleLink
}

// ListItem is a linked entry in a page listing.
type ListItem struct {
	Heading  string
	URL      string
	ImageURL string
}

// HomePageData contains the landing page content of one locale.
type HomePageData struct {
	Layout   LayoutData
	BodyHTML string
	Recipes  []ListItem
	Articles []ListItem
}

// ContentPageData contains a rendered recipe or article.
type ContentPageData struct {
	Layout   LayoutData
	Heading  string
	ImageURL string
	BodyHTML string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Layout      LayoutData
	StatusLabel string
	Message     string
}
