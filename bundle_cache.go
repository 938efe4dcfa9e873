package msgsource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/util"
	"github.com/rs/xid"
	"golang.org/x/text/language"
)

type bundleKey struct {
	basename string
	locale   language.Tag
}

// bundleCache memoizes loader results keyed by basename and locale.
//
// With a negative cache duration entries are cached forever in a nested
// concurrent mapping and only explicit invalidation replaces them. With a
// zero or positive duration the mapping is bypassed and the loader is
// consulted on every call, leaving any time based caching to the loader's
// own native TTL handling.
type bundleCache struct {
	loader   Loader
	duration time.Duration
	formats  *formatCache

	// bundles holds basename -> *sync.Map(locale -> *Bundle). Forever mode only.
	bundles sync.Map

	// served tracks the bundle identity last handed out per key in
	// time bounded mode, so a loader side reload can be detected and the
	// superseded identity's formats purged before the fresh bundle is
	// published.
	served sync.Map
}

func newBundleCache(loader Loader, duration time.Duration, formats *formatCache) *bundleCache {
	return &bundleCache{
		loader:   loader,
		duration: duration,
		formats:  formats,
	}
}

// get returns the bundle for the basename and locale, loading it on a miss.
// Bundle absence is returned as ErrBundleNotFound and never cached, so a
// once missing bundle that later becomes available is resolved promptly.
func (bc *bundleCache) get(ctx context.Context, basename string, locale language.Tag) (*Bundle, error) {
	if bc.duration >= 0 {
		return bc.getFresh(ctx, basename, locale)
	}
	return bc.getCached(ctx, basename, locale)
}

// getCached serves the cache-forever mode: a nested mapping consulted first,
// populated with insert-if-absent semantics. Concurrent misses for the same
// key all converge on a single winning bundle instance; losers discard their
// redundant load silently.
func (bc *bundleCache) getCached(ctx context.Context, basename string, locale language.Tag) (*Bundle, error) {
	if lm, ok := bc.bundles.Load(basename); ok {
		if b, bok := lm.(*sync.Map).Load(locale); bok {
			return b.(*Bundle), nil
		}
	}

	bundle, err := bc.load(ctx, basename, locale)
	if err != nil {
		return nil, err
	}

	lm, _ := bc.bundles.LoadOrStore(basename, &sync.Map{})
	winner, _ := lm.(*sync.Map).LoadOrStore(locale, bundle)
	return winner.(*Bundle), nil
}

// getFresh serves the time bounded mode: every call goes to the loader,
// whose native TTL cache governs freshness. When the loader hands back a
// bundle with a new identity the superseded identity's compiled formats are
// invalidated before the new identity is recorded, so no window exists where
// a fresh bundle is visible while stale formats could still be served.
func (bc *bundleCache) getFresh(ctx context.Context, basename string, locale language.Tag) (*Bundle, error) {
	bundle, err := bc.load(ctx, basename, locale)
	if err != nil {
		return nil, err
	}

	key := bundleKey{basename: basename, locale: locale}
	for {
		prev, ok := bc.served.Load(key)
		if !ok {
			if _, loaded := bc.served.LoadOrStore(key, bundle.ID()); !loaded {
				return bundle, nil
			}
			continue
		}

		prevID := prev.(xid.ID)
		if prevID == bundle.ID() {
			return bundle, nil
		}

		bc.formats.invalidateBundle(prevID)
		if bc.served.CompareAndSwap(key, prev, bundle.ID()) {
			return bundle, nil
		}
	}
}

func (bc *bundleCache) load(ctx context.Context, basename string, locale language.Tag) (*Bundle, error) {
	bundle, err := bc.loader.Load(ctx, basename, locale)
	if err != nil {
		if errors.Is(err, ErrBundleNotFound) {
			// Not found is left uncached and unraised so a parent or
			// fallback source still gets its chance.
			util.Log(ctx).
				WithField("basename", basename).
				WithField("locale", locale.String()).
				Warn("bundle not found")
			return nil, err
		}
		return nil, fmt.Errorf("msgsource: loading bundle %q for %v: %w", basename, locale, err)
	}
	return bundle, nil
}

// invalidate removes the cached bundle for the basename and locale and purges
// its compiled formats. Old format entries go first so the next get can never
// observe a refreshed bundle alongside formats from its predecessor.
func (bc *bundleCache) invalidate(basename string, locale language.Tag) {
	key := bundleKey{basename: basename, locale: locale}
	if prev, ok := bc.served.LoadAndDelete(key); ok {
		bc.formats.invalidateBundle(prev.(xid.ID))
	}

	lm, ok := bc.bundles.Load(basename)
	if !ok {
		return
	}
	if b, loaded := lm.(*sync.Map).LoadAndDelete(locale); loaded {
		bc.formats.invalidateBundle(b.(*Bundle).ID())
	}
}

// flush drops every cached bundle and every compiled format.
func (bc *bundleCache) flush() {
	bc.bundles.Range(func(k, _ any) bool {
		bc.bundles.Delete(k)
		return true
	})
	bc.served.Range(func(k, _ any) bool {
		bc.served.Delete(k)
		return true
	})
	bc.formats.flush()
}
