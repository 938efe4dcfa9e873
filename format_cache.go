package msgsource

import (
	"fmt"
	"sync"

	"github.com/rs/xid"
	"golang.org/x/text/language"
)

// formatCache memoizes compiled formats under a three level concurrent
// mapping: bundle identity, then message key, then locale. Keeping the
// bundle's identity token as the outer key means invalidating one bundle
// never disturbs formats compiled against another bundle instance, even one
// loaded for the same basename in an earlier caching epoch.
type formatCache struct {
	compiler Compiler

	// formats holds xid.ID -> *sync.Map(key -> *sync.Map(locale -> CompiledFormat)).
	formats sync.Map
}

func newFormatCache(compiler Compiler) *formatCache {
	return &formatCache{compiler: compiler}
}

// get returns the compiled format for the key in the given bundle, compiling
// and publishing it on a miss. Absence of the key is reported as
// ErrMessageNotFound and never cached. When concurrent callers race to
// populate the same triple, exactly one compile result becomes canonical and
// the rest are discarded.
func (fc *formatCache) get(bundle *Bundle, key string, locale language.Tag) (CompiledFormat, error) {
	var keyMap, localeMap *sync.Map

	if km, ok := fc.formats.Load(bundle.ID()); ok {
		keyMap, _ = km.(*sync.Map)
		if lm, lok := keyMap.Load(key); lok {
			localeMap, _ = lm.(*sync.Map)
			if f, fok := localeMap.Load(locale); fok {
				return f.(CompiledFormat), nil
			}
		}
	}

	// Check containment before fetching so absence stays ordinary control
	// flow rather than an error path.
	if !bundle.Has(key) {
		return nil, ErrMessageNotFound
	}
	raw, ok := bundle.Value(key)
	if !ok {
		return nil, ErrMessageNotFound
	}

	compiled, err := fc.compiler.Compile(raw, locale)
	if err != nil {
		return nil, fmt.Errorf("msgsource: compiling %q for %v: %w", key, locale, err)
	}

	// Populate only the levels that were missing. LoadOrStore keeps inserts
	// non destructive under concurrent population of sibling entries.
	if keyMap == nil {
		km, _ := fc.formats.LoadOrStore(bundle.ID(), &sync.Map{})
		keyMap = km.(*sync.Map)
	}
	if localeMap == nil {
		lm, _ := keyMap.LoadOrStore(key, &sync.Map{})
		localeMap = lm.(*sync.Map)
	}

	winner, _ := localeMap.LoadOrStore(locale, compiled)
	return winner.(CompiledFormat), nil
}

// invalidateBundle drops every cached format belonging to the given bundle
// identity in one operation. Formats compiled from a stale bundle's values
// must not survive that bundle's replacement.
func (fc *formatCache) invalidateBundle(id xid.ID) {
	fc.formats.Delete(id)
}

// flush drops every cached format.
func (fc *formatCache) flush() {
	fc.formats.Range(func(k, _ any) bool {
		fc.formats.Delete(k)
		return true
	})
}
