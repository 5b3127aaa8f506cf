package http

import (
	stdhttp "net/http"
	"strings"

	"bezcukru/app/internal/domain/i18n"
)

var passthroughPaths = map[string]struct{}{
	"/favicon.ico":                {},
	"/.well-known/security.txt":   {},
	"/.well-known/pgp-public.asc": {},
	"/healthz":                    {},
	"/docs":                       {},
}

var passthroughPrefixes = []string{"/img", "/openapi", "/schemas/"}

// LocaleRedirect sends requests without an active locale prefix to the same path under the
// locale negotiated from Accept-Language. Assets, health and API documentation pass through.
func LocaleRedirect(registry *i18n.Registry, next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		pathname := r.URL.Path

		if isPassthrough(pathname) {
			next.ServeHTTP(w, r)
			return
		}

		if registry.RecognizedInPath(pathname) {
			if locale, ok := registry.Validate(strings.Trim(pathname, "/")); ok && pathname == "/"+string(locale)+"/" {
				redirect(w, r, "/"+string(locale))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		target := "/" + string(registry.Negotiate(r.Header))
		if pathname != "/" {
			if !strings.HasPrefix(pathname, "/") {
				target += "/"
			}
			target += pathname
		}
		redirect(w, r, target)
	})
}

func isPassthrough(pathname string) bool {
	if _, ok := passthroughPaths[pathname]; ok {
		return true
	}
	for _, prefix := range passthroughPrefixes {
		if strings.HasPrefix(pathname, prefix) {
			return true
		}
	}
	return false
}

func redirect(w stdhttp.ResponseWriter, r *stdhttp.Request, target string) {
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	stdhttp.Redirect(w, r, target, stdhttp.StatusTemporaryRedirect)
}
