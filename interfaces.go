package msgsource

import (
	"context"
	"time"

	"golang.org/x/text/language"
)

// Loader obtains message bundles from some underlying store. Implementations
// return ErrBundleNotFound when no matching resource exists and may apply
// their own native time-to-live caching when freshness matters more than raw
// throughput. Loading must be idempotent and side-effect free: concurrent
// callers may load the same bundle redundantly and the cache keeps only one.
type Loader interface {
	Load(ctx context.Context, basename string, locale language.Tag) (*Bundle, error)
}

// CompiledFormat is a reusable, locale-bound representation of a message
// template. Render substitutes positional arguments into the template.
// Implementations must be safe for concurrent use.
type CompiledFormat interface {
	Render(args ...any) string
}

// Compiler turns a raw template string into a CompiledFormat for a locale.
// Compilation must be idempotent and side-effect free for the same reason
// loading must be.
type Compiler interface {
	Compile(template string, locale language.Tag) (CompiledFormat, error)
}

// ReloadChecker decides whether a bundle loaded at the given time is stale.
// Loaders consult it when a natively cached entry's TTL lapses.
type ReloadChecker interface {
	NeedsReload(basename string, locale language.Tag, loadedAt time.Time) bool
}

// ReloadCheckerFunc adapts a plain function to the ReloadChecker interface.
type ReloadCheckerFunc func(basename string, locale language.Tag, loadedAt time.Time) bool

func (f ReloadCheckerFunc) NeedsReload(basename string, locale language.Tag, loadedAt time.Time) bool {
	return f(basename, locale, loadedAt)
}
