// Package msgsource resolves localized messages from named bundles while
// caching both the loaded bundles and the formats compiled from them. The
// caches use concurrent insert-if-absent publication throughout, so many
// goroutines can resolve messages without a shared lock.
package msgsource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
	"golang.org/x/text/language"
)

// Resolver is the public entry point for message resolution. It iterates its
// configured basenames in order, consulting the bundle cache and then the
// format cache, and returns the first successful resolution. The resolver
// itself holds no state beyond what its two caches hold.
type Resolver struct {
	opts    *Options
	bundles *bundleCache
	formats *formatCache
}

// NewResolver creates a resolver backed by the given loader.
func NewResolver(loader Loader, opts ...Option) *Resolver {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	formats := newFormatCache(options.Compiler)
	return &Resolver{
		opts:    options,
		bundles: newBundleCache(loader, options.CacheDuration, formats),
		formats: formats,
	}
}

// Basenames returns the ordered basenames this resolver consults.
func (r *Resolver) Basenames() []string {
	out := make([]string, len(r.opts.Basenames))
	copy(out, r.opts.Basenames)
	return out
}

// Parent returns the next resolver in the fallback chain, if any. Callers
// that receive a not found result decide whether to escalate to it.
func (r *Resolver) Parent() *Resolver {
	return r.opts.Parent
}

// Literal resolves the key to its raw message string without any template
// processing. Basenames are tried in order and the first bundle defining the
// key wins; overall absence is reported as ErrMessageNotFound.
func (r *Resolver) Literal(ctx context.Context, key string, locale language.Tag) (string, error) {
	for _, basename := range r.opts.Basenames {
		bundle, err := r.bundles.get(ctx, basename, locale)
		if err != nil {
			if errors.Is(err, ErrBundleNotFound) {
				continue
			}
			return "", err
		}
		if value, ok := bundle.Value(key); ok {
			return value, nil
		}
	}
	return "", ErrMessageNotFound
}

// Format resolves the key to a compiled, reusable format. The same iteration
// order as Literal applies, with the format cache consulted per bundle.
func (r *Resolver) Format(ctx context.Context, key string, locale language.Tag) (CompiledFormat, error) {
	for _, basename := range r.opts.Basenames {
		bundle, err := r.bundles.get(ctx, basename, locale)
		if err != nil {
			if errors.Is(err, ErrBundleNotFound) {
				continue
			}
			return nil, err
		}

		compiled, err := r.formats.get(bundle, key, locale)
		if err != nil {
			if errors.Is(err, ErrMessageNotFound) {
				continue
			}
			return nil, err
		}
		return compiled, nil
	}
	return nil, ErrMessageNotFound
}

// Render resolves the key and substitutes the given arguments. Messages
// without arguments are resolved literally, skipping template compilation
// entirely.
func (r *Resolver) Render(ctx context.Context, key string, locale language.Tag, args ...any) (string, error) {
	if len(args) == 0 {
		return r.Literal(ctx, key, locale)
	}

	compiled, err := r.Format(ctx, key, locale)
	if err != nil {
		return "", err
	}
	return compiled.Render(args...), nil
}

// Invalidate removes the cached bundle for the basename and locale together
// with every format compiled from it. The next lookup reloads from storage.
func (r *Resolver) Invalidate(basename string, locale language.Tag) {
	r.bundles.invalidate(basename, locale)
}

// Flush empties both caches.
func (r *Resolver) Flush() {
	r.bundles.flush()
}

// Warm preloads every configured basename for the given locales and compiles
// every message in the loaded bundles, so first lookups after startup hit a
// hot cache. Loading and compiling run on a bounded worker pool. Missing
// bundles are skipped; other loader failures are collected and returned.
func (r *Resolver) Warm(ctx context.Context, locales ...language.Tag) error {
	pool, err := ants.NewPool(r.opts.WarmConcurrency)
	if err != nil {
		return fmt.Errorf("msgsource: creating warm pool: %w", err)
	}
	defer pool.Release()

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)

	for _, basename := range r.opts.Basenames {
		for _, locale := range locales {
			wg.Add(1)
			submitErr := pool.Submit(func() {
				defer wg.Done()
				if warmErr := r.warmOne(ctx, basename, locale); warmErr != nil {
					errMu.Lock()
					errs = append(errs, warmErr)
					errMu.Unlock()
				}
			})
			if submitErr != nil {
				wg.Done()
				errMu.Lock()
				errs = append(errs, fmt.Errorf("msgsource: submitting warm task: %w", submitErr))
				errMu.Unlock()
			}
		}
	}

	wg.Wait()
	return errors.Join(errs...)
}

func (r *Resolver) warmOne(ctx context.Context, basename string, locale language.Tag) error {
	bundle, err := r.bundles.get(ctx, basename, locale)
	if err != nil {
		if errors.Is(err, ErrBundleNotFound) {
			return nil
		}
		return err
	}

	for _, key := range bundle.Keys() {
		if _, formatErr := r.formats.get(bundle, key, locale); formatErr != nil &&
			!errors.Is(formatErr, ErrMessageNotFound) {
			util.Log(ctx).
				WithError(formatErr).
				WithField("basename", basename).
				WithField("key", key).
				Warn("could not precompile message")
		}
	}
	return nil
}
