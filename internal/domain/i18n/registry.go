// Package i18n holds the set of locales the site is published in.
package i18n

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
)

// Locale is a two-letter language code from the supported table.
type Locale string

// UnknownFlag is shown for codes outside the supported table.
const UnknownFlag = "🏳️"

// ErrNoLocales is returned when the configured list contains no supported code.
var ErrNoLocales = eris.New("no supported locales configured")

var flags = map[Locale]string{
	"pl": "🇵🇱",
	"uk": "🇺🇦",
	"en": "🇺🇲",
	"de": "🇩🇪",
	"fr": "🇫🇷",
	"es": "🇪🇸",
	"it": "🇮🇹",
	"cs": "🇨🇿",
}

// LocaleFlag pairs a locale with its flag glyph.
type LocaleFlag struct {
	Locale Locale
	Flag   string
}

// Registry answers locale questions for one deployment. It is immutable once built.
type Registry struct {
	locales  []Locale
	active   map[Locale]struct{}
	matcher  language.Matcher
	trailing *regexp.Regexp
}

// NewRegistry keeps the supported codes from the configured list in first-seen order. The first
// remaining code becomes the default.
func NewRegistry(codes []string) (*Registry, error) {
	locales := make([]Locale, 0, len(codes))
	active := make(map[Locale]struct{}, len(codes))

	for _, code := range codes {
		locale := Locale(strings.TrimSpace(code))
		if _, ok := flags[locale]; !ok {
			continue
		}
		if _, seen := active[locale]; seen {
			continue
		}
		active[locale] = struct{}{}
		locales = append(locales, locale)
	}

	if len(locales) == 0 {
		return nil, eris.Wrapf(ErrNoLocales, "configured: %v", codes)
	}

	tags := make([]language.Tag, 0, len(locales))
	alternatives := make([]string, 0, len(locales))
	for _, locale := range locales {
		tags = append(tags, language.Make(string(locale)))
		alternatives = append(alternatives, regexp.QuoteMeta(string(locale)))
	}

	return &Registry{
		locales:  locales,
		active:   active,
		matcher:  language.NewMatcher(tags),
		trailing: regexp.MustCompile(`(?i)\s(` + strings.Join(alternatives, "|") + `)$`),
	}, nil
}

// Flag returns the glyph for an active locale code. Inactive or unknown codes get UnknownFlag.
func (r *Registry) Flag(code string) string {
	locale := Locale(code)
	if _, ok := r.active[locale]; !ok {
		return UnknownFlag
	}
	if flag, ok := flags[locale]; ok {
		return flag
	}
	return UnknownFlag
}

// Locales returns the active locales, default first.
func (r *Registry) Locales() []Locale {
	out := make([]Locale, len(r.locales))
	copy(out, r.locales)
	return out
}

// Default returns the fallback locale.
func (r *Registry) Default() Locale {
	return r.locales[0]
}

// LocalesWithFlags lists the active locales with their flags, in configured order.
func (r *Registry) LocalesWithFlags() []LocaleFlag {
	out := make([]LocaleFlag, 0, len(r.locales))
	for _, locale := range r.locales {
		out = append(out, LocaleFlag{Locale: locale, Flag: r.Flag(string(locale))})
	}
	return out
}

// Negotiate picks the best active locale for the request headers. It never fails.
func (r *Registry) Negotiate(header http.Header) Locale {
	if header == nil {
		return r.Default()
	}
	return r.NegotiateAcceptLanguage(header.Get("Accept-Language"))
}

// NegotiateAcceptLanguage matches a raw Accept-Language value against the active locales.
func (r *Registry) NegotiateAcceptLanguage(value string) Locale {
	if strings.TrimSpace(value) == "" {
		return r.Default()
	}

	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return r.Default()
	}

	_, index, confidence := r.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(r.locales) {
		return r.Default()
	}

	return r.locales[index]
}

// Validate reports whether candidate is exactly one of the active locales.
func (r *Registry) Validate(candidate string) (Locale, bool) {
	locale := Locale(candidate)
	if _, ok := r.active[locale]; ok {
		return locale, true
	}
	return "", false
}

// RecognizedInPath reports whether pathname starts with an active locale segment.
func (r *Registry) RecognizedInPath(pathname string) bool {
	for _, locale := range r.locales {
		prefix := "/" + string(locale)
		if pathname == prefix || strings.HasPrefix(pathname, prefix+"/") {
			return true
		}
	}
	return false
}

// ExtractTrailingLanguageCode splits a whitespace-separated trailing locale token off baseName.
// The token is matched case-insensitively; when none is present baseName is returned unchanged.
func (r *Registry) ExtractTrailingLanguageCode(baseName string) (string, Locale, bool) {
	match := r.trailing.FindStringSubmatchIndex(baseName)
	if match == nil {
		return baseName, "", false
	}

	code := strings.ToLower(baseName[match[2]:match[3]])
	locale, ok := r.Validate(code)
	if !ok {
		return baseName, "", false
	}

	return baseName[:match[0]], locale, true
}
