// Package redis loads message bundles from redis hashes. Each bundle lives
// in one hash whose field-value pairs are the messages, keyed
// "<prefix>:<basename>:<locale>" with "root" for the locale neutral bundle.
// Translations published out-of-band become visible on the next uncached
// load.
package redis

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/pitabwire/msgsource"
	"github.com/pitabwire/msgsource/loader"
)

const defaultKeyPrefix = "msgsource"

const connectionTimeout = 5 * time.Second

// Options contains configuration for the redis loader.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Loader resolves bundles from redis. It is safe for concurrent use.
type Loader struct {
	client *redis.Client
	prefix string
}

// New creates a redis backed loader and verifies connectivity.
func New(opts Options) (*Loader, error) {
	// Parse address to handle redis:// scheme
	addr := opts.Addr
	if parsedURL, err := url.Parse(opts.Addr); err == nil && parsedURL.Scheme == "redis" {
		addr = parsedURL.Host
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Loader{client: client, prefix: prefix}, nil
}

// NewWithClient wraps an existing client, sharing its connection pool.
func NewWithClient(client *redis.Client, prefix string) *Loader {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Loader{client: client, prefix: prefix}
}

// Load implements msgsource.Loader, walking the locale fallback chain down
// to the root hash.
func (l *Loader) Load(ctx context.Context, basename string, locale language.Tag) (*msgsource.Bundle, error) {
	candidates := make([]string, 0, 4)
	for _, tag := range loader.LocaleChain(locale) {
		candidates = append(candidates, tag.String())
	}
	candidates = append(candidates, "root")

	for _, candidate := range candidates {
		key := fmt.Sprintf("%s:%s:%s", l.prefix, basename, candidate)
		values, err := l.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis loader: reading %s: %w", key, err)
		}
		if len(values) > 0 {
			return msgsource.NewBundle(basename, locale, values), nil
		}
	}

	return nil, fmt.Errorf("%w: %s for %v", msgsource.ErrBundleNotFound, basename, locale)
}

// Close releases the redis connection.
func (l *Loader) Close() error {
	return l.client.Close()
}
