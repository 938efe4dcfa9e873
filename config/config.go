// Package config carries the environment driven configuration surface for
// message resolution.
package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

type contextKey string

func (c contextKey) String() string {
	return "msgsource/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

// Config holds message resolution settings.
//
// MessageCacheDurationSeconds follows the convention of the caches: negative
// caches bundles forever, zero refreshes on every lookup and a positive value
// is a TTL in seconds delegated to the loader.
type Config struct {
	Basenames []string `envSeparator:"," env:"MESSAGE_BASENAMES" yaml:"basenames"`

	MessageCacheDurationSeconds int `envDefault:"-1" env:"MESSAGE_CACHE_DURATION_SECONDS" yaml:"message_cache_duration_seconds"`

	DefaultLocale           string `envDefault:"en"   env:"MESSAGE_DEFAULT_LOCALE"             yaml:"default_locale"`
	FallbackToDefaultLocale bool   `envDefault:"true" env:"MESSAGE_FALLBACK_TO_DEFAULT_LOCALE" yaml:"fallback_to_default_locale"`

	DefaultEncoding string `envDefault:"ISO-8859-1"   env:"MESSAGE_DEFAULT_ENCODING" yaml:"default_encoding"`
	TranslationsDir string `envDefault:"localization" env:"MESSAGE_TRANSLATIONS_DIR" yaml:"translations_dir"`

	WarmConcurrency int `envDefault:"4" env:"MESSAGE_WARM_CONCURRENCY" yaml:"warm_concurrency"`
}

// CacheDuration converts the configured seconds into the duration policy the
// caches expect.
func (c *Config) CacheDuration() time.Duration {
	if c.MessageCacheDurationSeconds < 0 {
		return time.Duration(-1)
	}
	return time.Duration(c.MessageCacheDurationSeconds) * time.Second
}

// Locale parses the configured default locale, defaulting to English when
// the value does not parse.
func (c *Config) Locale() language.Tag {
	tag, err := language.Parse(c.DefaultLocale)
	if err != nil {
		return language.English
	}
	return tag
}
