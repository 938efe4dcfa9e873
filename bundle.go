package msgsource

import (
	"time"

	"github.com/rs/xid"
	"golang.org/x/text/language"
)

// Bundle is an immutable set of messages resolved for one basename and
// locale. Every bundle carries its own identity token so that caches keyed
// by bundle survive content-identical reloads without mixing entries: a
// reloaded bundle is a new bundle, even when nothing in it changed.
type Bundle struct {
	name     string
	locale   language.Tag
	id       xid.ID
	loadedAt time.Time
	values   map[string]string
}

// NewBundle creates a bundle for the given basename and locale. The supplied
// values are copied so later mutation by the caller cannot leak into the
// bundle.
func NewBundle(name string, locale language.Tag, values map[string]string) *Bundle {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}

	return &Bundle{
		name:     name,
		locale:   locale,
		id:       xid.New(),
		loadedAt: time.Now(),
		values:   copied,
	}
}

// Name returns the basename this bundle was loaded for.
func (b *Bundle) Name() string {
	return b.name
}

// Locale returns the locale this bundle was loaded for.
func (b *Bundle) Locale() language.Tag {
	return b.locale
}

// ID returns the bundle's identity token. Two bundles loaded for the same
// basename and locale in different caching epochs have different IDs.
func (b *Bundle) ID() xid.ID {
	return b.id
}

// LoadedAt returns the time the bundle was created from its source.
func (b *Bundle) LoadedAt() time.Time {
	return b.loadedAt
}

// Has reports whether the bundle defines the given message key.
func (b *Bundle) Has(key string) bool {
	_, ok := b.values[key]
	return ok
}

// Value returns the raw message string for the given key.
func (b *Bundle) Value(key string) (string, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Keys returns the message keys defined by this bundle.
func (b *Bundle) Keys() []string {
	keys := make([]string, 0, len(b.values))
	for k := range b.values {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of messages in the bundle.
func (b *Bundle) Len() int {
	return len(b.values)
}
