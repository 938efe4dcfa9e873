package msgsource

import (
	"context"

	"golang.org/x/text/language"
)

type contextKey string

func (c contextKey) String() string {
	return "msgsource/" + string(c)
}

const ctxKeyLocale = contextKey("localeKey")

// ToContext stores the negotiated locale in the context. Transport
// middleware typically calls this after parsing an Accept-Language header.
func ToContext(ctx context.Context, locale language.Tag) context.Context {
	return context.WithValue(ctx, ctxKeyLocale, locale)
}

// FromContext extracts the locale stored in the context, if any.
func FromContext(ctx context.Context) (language.Tag, bool) {
	locale, ok := ctx.Value(ctxKeyLocale).(language.Tag)
	return locale, ok
}

// RenderCtx behaves like Render but takes the locale from the context,
// falling back to language.Und when none was stored.
func (r *Resolver) RenderCtx(ctx context.Context, key string, args ...any) (string, error) {
	locale, _ := FromContext(ctx)
	return r.Render(ctx, key, locale, args...)
}
