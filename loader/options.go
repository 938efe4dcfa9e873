package loader

import (
	"time"

	"golang.org/x/text/language"

	"github.com/pitabwire/msgsource"
)

// Option configures a Loader.
type Option func(*Loader)

// WithTTL enables the loader's native cache: a parsed bundle is served for
// the given duration before the underlying file is checked for changes. A
// zero or negative duration disables native caching, re-reading on every
// call.
func WithTTL(ttl time.Duration) Option {
	return func(l *Loader) {
		l.ttl = ttl
	}
}

// WithDefaultLocale sets the locale tried when no resource matches the
// requested one. Defaults to English.
func WithDefaultLocale(locale language.Tag) Option {
	return func(l *Loader) {
		l.defaultLocale = locale
	}
}

// WithFallbackToDefaultLocale controls whether lookups fall back to the
// default locale's resources before the locale-neutral root file.
func WithFallbackToDefaultLocale(fallback bool) Option {
	return func(l *Loader) {
		l.fallbackToDefault = fallback
	}
}

// WithEncoding sets the text encoding used for properties bundles, by IANA
// name. Defaults to ISO-8859-1, matching the properties format's
// conventions. Structured formats are always UTF-8.
func WithEncoding(name string) Option {
	return func(l *Loader) {
		if name != "" {
			l.encoding = name
		}
	}
}

// WithReloadCheck overrides staleness detection for natively cached bundles.
func WithReloadCheck(rc msgsource.ReloadChecker) Option {
	return func(l *Loader) {
		l.reloadCheck = rc
	}
}
