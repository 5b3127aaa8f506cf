// Package templates renders the HTML views of the site.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the document shell with the header navigation.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}

		title := SiteName
		if data.Title != "" {
			title = data.Title + " • " + SiteName
		}

		m.raw(`<!DOCTYPE html><html lang="`)
		m.text(data.Locale)
		m.raw(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		m.text(title)
		m.raw(`</title>`)
		if data.Title != "" {
			m.raw(`<meta name="description" content="`)
			m.text(data.Title)
			m.raw(`">`)
		}
		m.raw(`</head><body><header class="header-navigation"><a class="home-link" href="`)
		m.href(data.HomeLink)
		m.raw(`">🏠</a><nav class="locale-switcher">`)
		for _, link := range data.Links {
			if link.Current {
				m.raw(`<span lang="`)
				m.text(link.Locale)
				m.raw(`">`)
				m.text(link.Flag)
				m.raw(`</span>`)
				continue
			}
			m.raw(`<a hreflang="`)
			m.text(link.Locale)
			m.raw(`" href="`)
			m.href(link.Href)
			m.raw(`">`)
			m.text(link.Flag)
			m.raw(`</a>`)
		}
		m.raw(`</nav></header>`)
		m.component(ctx, body)
		m.raw(`</body></html>`)

		return m.err
	})
}

// HomePage renders the landing page of one locale.
func HomePage(data HomePageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}

		m.raw(`<main class="content">`)
		if len(data.Recipes) > 0 {
			m.raw(`<section class="recipes">`)
			writeList(m, data.Recipes)
			m.raw(`</section>`)
		}
		if data.BodyHTML != "" {
			m.raw(`<div class="sidebar">`)
			m.component(ctx, RawHTML(data.BodyHTML))
			m.raw(`</div>`)
		}
		if len(data.Articles) > 0 {
			m.raw(`<section class="articles">`)
			writeList(m, data.Articles)
			m.raw(`</section>`)
		}
		m.raw(`</main>`)

		return m.err
	})

	return Layout(data.Layout, body)
}

// ContentPage renders a recipe or an article.
func ContentPage(data ContentPageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := &markup{w: w}

		m.raw(`<main class="content"><article><h1>`)
		m.text(data.Heading)
		m.raw(`</h1>`)
		if data.ImageURL != "" {
			m.raw(`<img src="`)
			m.href(data.ImageURL)
			m.raw(`" width="100" height="100" alt="`)
			m.text(data.Heading)
			m.raw(`">`)
		}
		m.component(ctx, RawHTML(data.BodyHTML))
		m.raw(`</article></main>`)

		return m.err
	})

	return Layout(data.Layout, body)
}

// ErrorPage renders a status page.
func ErrorPage(data ErrorPageData) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := &markup{w: w}

		m.raw(`<main class="content error"><h1>`)
		m.text(data.StatusLabel)
		m.raw(`</h1><p>`)
		m.text(data.Message)
		m.raw(`</p></main>`)

		return m.err
	})

	if data.Layout.Title == "" {
		data.Layout.Title = data.StatusLabel
	}
	return Layout(data.Layout, body)
}

func writeList(m *markup, items []ListItem) {
	m.raw(`<ul>`)
	for _, item := range items {
		m.raw(`<li><a href="`)
		m.href(item.URL)
		m.raw(`">`)
		if item.ImageURL != "" {
			m.raw(`<img src="`)
			m.href(item.ImageURL)
			m.raw(`" alt="">`)
		}
		m.text(item.Heading)
		m.raw(`</a></li>`)
	}
	m.raw(`</ul>`)
}
