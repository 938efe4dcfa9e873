// Package loader reads message bundles from a directory tree. A bundle for
// basename "messages" and locale "en-US" is resolved from the first of
// messages.en-US.toml, messages.en.toml and messages.toml that exists, with
// json, yaml and properties variants tried per candidate. Parsed bundles can
// be cached natively with a TTL and refreshed when the underlying file
// changes.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/pitabwire/msgsource"
)

type resourceKey struct {
	basename string
	locale   language.Tag
}

type entry struct {
	bundle   *msgsource.Bundle
	path     string
	modTime  time.Time
	loadedAt time.Time
}

// Loader resolves bundles from an fs.FS. It is safe for concurrent use.
type Loader struct {
	fsys fs.FS
	dir  string

	ttl               time.Duration
	defaultLocale     language.Tag
	fallbackToDefault bool
	encoding          string
	reloadCheck       msgsource.ReloadChecker

	// entries holds resourceKey -> *entry for the native TTL cache.
	entries sync.Map

	watchMu sync.Mutex
	watcher *watcher
}

// New creates a loader rooted at dir on the local filesystem. Only loaders
// created this way support Watch.
func New(dir string, opts ...Option) *Loader {
	l := newLoader(os.DirFS(dir), opts...)
	l.dir = dir
	return l
}

// NewFS creates a loader over an arbitrary filesystem, embedded bundles
// included.
func NewFS(fsys fs.FS, opts ...Option) *Loader {
	return newLoader(fsys, opts...)
}

func newLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{
		fsys:          fsys,
		defaultLocale: language.English,
		encoding:      defaultPropertiesEncoding,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load implements msgsource.Loader.
func (l *Loader) Load(_ context.Context, basename string, locale language.Tag) (*msgsource.Bundle, error) {
	if l.ttl <= 0 {
		// No native caching: zero means refresh on every call, and with
		// caching disabled entirely the resolver's own cache is in charge.
		bundle, _, _, err := l.read(basename, locale)
		return bundle, err
	}
	return l.loadCached(basename, locale)
}

func (l *Loader) loadCached(basename string, locale language.Tag) (*msgsource.Bundle, error) {
	key := resourceKey{basename: basename, locale: locale}

	cached, ok := l.entries.Load(key)
	if ok {
		ent := cached.(*entry)
		if time.Since(ent.loadedAt) < l.ttl {
			return ent.bundle, nil
		}

		if !l.needsReload(basename, locale, ent) {
			// Still current on disk, re-arm the TTL and keep the same
			// bundle instance so downstream format caches stay intact.
			rearmed := &entry{
				bundle:   ent.bundle,
				path:     ent.path,
				modTime:  ent.modTime,
				loadedAt: time.Now(),
			}
			if l.entries.CompareAndSwap(key, cached, rearmed) {
				return rearmed.bundle, nil
			}
			return l.loadCached(basename, locale)
		}

		bundle, path, modTime, err := l.read(basename, locale)
		if err != nil {
			l.entries.Delete(key)
			return nil, err
		}

		fresh := &entry{bundle: bundle, path: path, modTime: modTime, loadedAt: time.Now()}
		if l.entries.CompareAndSwap(key, cached, fresh) {
			l.clearDirty(path)
			return bundle, nil
		}
		// Another goroutine refreshed first; its bundle is canonical and
		// ours gets discarded.
		return l.loadCached(basename, locale)
	}

	bundle, path, modTime, err := l.read(basename, locale)
	if err != nil {
		return nil, err
	}

	fresh := &entry{bundle: bundle, path: path, modTime: modTime, loadedAt: time.Now()}
	winner, loaded := l.entries.LoadOrStore(key, fresh)
	if loaded {
		return winner.(*entry).bundle, nil
	}
	return bundle, nil
}

// needsReload applies the configured reload check, the watcher's dirty set
// or a modification time comparison, in that order of preference.
func (l *Loader) needsReload(basename string, locale language.Tag, ent *entry) bool {
	if l.reloadCheck != nil {
		return l.reloadCheck.NeedsReload(basename, locale, ent.loadedAt)
	}

	if w := l.currentWatcher(); w != nil {
		return w.isDirty(ent.path)
	}

	info, err := fs.Stat(l.fsys, ent.path)
	if err != nil {
		return true
	}
	return !info.ModTime().Equal(ent.modTime)
}

func (l *Loader) clearDirty(path string) {
	if w := l.currentWatcher(); w != nil {
		w.clear(path)
	}
}

// read locates and parses the bundle resource, trying the locale's fallback
// chain, then the configured default locale, then the locale-neutral root
// file.
func (l *Loader) read(basename string, locale language.Tag) (*msgsource.Bundle, string, time.Time, error) {
	path, ok := l.locate(basename, locale)
	if !ok {
		return nil, "", time.Time{}, fmt.Errorf("%w: %s for %v", msgsource.ErrBundleNotFound, basename, locale)
	}

	info, err := fs.Stat(l.fsys, path)
	if err != nil {
		return nil, "", time.Time{}, fmt.Errorf("loader: stat %s: %w", path, err)
	}

	values, err := l.parseFile(path)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	return msgsource.NewBundle(basename, locale, values), path, info.ModTime(), nil
}

func (l *Loader) locate(basename string, locale language.Tag) (string, bool) {
	for _, candidate := range LocaleChain(locale) {
		if path, ok := l.existing(basename + "." + candidate.String()); ok {
			return path, true
		}
	}

	if l.fallbackToDefault && locale != l.defaultLocale {
		for _, candidate := range LocaleChain(l.defaultLocale) {
			if path, ok := l.existing(basename + "." + candidate.String()); ok {
				return path, true
			}
		}
	}

	return l.existing(basename)
}

func (l *Loader) existing(stem string) (string, bool) {
	for _, ext := range extensions {
		path := stem + ext
		if _, err := fs.Stat(l.fsys, path); err == nil {
			return path, true
		}
	}
	return "", false
}

// LocaleChain returns the locale candidates tried for a tag, most specific
// first: "zh-Hans-CN" yields zh-Hans-CN, zh-Hans, zh. The undefined tag
// yields nothing, leaving only the root resource.
func LocaleChain(locale language.Tag) []language.Tag {
	if locale == language.Und {
		return nil
	}

	var chain []language.Tag
	for tag := locale; tag != language.Und; tag = tag.Parent() {
		chain = append(chain, tag)
	}
	return chain
}
