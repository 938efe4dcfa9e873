package msgsource

import (
	"time"

	"github.com/pitabwire/msgsource/config"
	"github.com/pitabwire/msgsource/format"
	"golang.org/x/text/language"
)

// CacheForever keeps loaded bundles until they are explicitly invalidated.
// It is the default cache duration.
const CacheForever = time.Duration(-1)

const defaultWarmConcurrency = 4

// Option configures a Resolver.
type Option func(*Options)

// Options holds Resolver configuration.
type Options struct {
	Basenames       []string
	CacheDuration   time.Duration
	Compiler        Compiler
	Parent          *Resolver
	WarmConcurrency int
}

func defaultOptions() *Options {
	return &Options{
		CacheDuration:   CacheForever,
		Compiler:        defaultCompiler{},
		WarmConcurrency: defaultWarmConcurrency,
	}
}

// WithBasenames sets the ordered list of basenames consulted during
// resolution. Order is significant: the first basename defining a key wins.
func WithBasenames(basenames ...string) Option {
	return func(o *Options) {
		o.Basenames = append(o.Basenames, basenames...)
	}
}

// WithCacheDuration sets the bundle caching policy. Negative caches forever,
// zero refreshes on every lookup and a positive duration delegates TTL
// caching to the loader.
func WithCacheDuration(d time.Duration) Option {
	return func(o *Options) {
		o.CacheDuration = d
	}
}

// WithCompiler overrides the default positional template compiler.
func WithCompiler(c Compiler) Option {
	return func(o *Options) {
		if c != nil {
			o.Compiler = c
		}
	}
}

// WithParent links a resolver consulted by callers when this one reports
// absence. The link is traversed by the caller, never by the resolver itself.
func WithParent(parent *Resolver) Option {
	return func(o *Options) {
		o.Parent = parent
	}
}

// WithWarmConcurrency bounds the worker pool used by Warm.
func WithWarmConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.WarmConcurrency = n
		}
	}
}

// WithConfig applies environment driven configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *Options) {
		if cfg == nil {
			return
		}
		o.Basenames = append(o.Basenames, cfg.Basenames...)
		o.CacheDuration = cfg.CacheDuration()
		if cfg.WarmConcurrency > 0 {
			o.WarmConcurrency = cfg.WarmConcurrency
		}
	}
}

// defaultCompiler compiles templates with the format package.
type defaultCompiler struct{}

func (defaultCompiler) Compile(template string, locale language.Tag) (CompiledFormat, error) {
	f, err := format.Compile(template, locale)
	if err != nil {
		return nil, err
	}
	return f, nil
}
