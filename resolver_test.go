package msgsource_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/pitabwire/msgsource"
	"github.com/pitabwire/msgsource/config"
)

// stubLoader serves bundles from in-memory fixtures and counts loads per
// basename and locale. Every Load builds a fresh Bundle instance, the way a
// real loader would after a reload.
type stubLoader struct {
	mu       sync.Mutex
	fixtures map[string]map[string]string
	loads    map[string]int
	failWith error
}

func newStubLoader() *stubLoader {
	return &stubLoader{
		fixtures: make(map[string]map[string]string),
		loads:    make(map[string]int),
	}
}

func fixtureKey(basename string, locale language.Tag) string {
	return fmt.Sprintf("%s|%s", basename, locale)
}

func (s *stubLoader) add(basename string, locale language.Tag, values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures[fixtureKey(basename, locale)] = values
}

func (s *stubLoader) loadCount(basename string, locale language.Tag) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[fixtureKey(basename, locale)]
}

func (s *stubLoader) Load(_ context.Context, basename string, locale language.Tag) (*msgsource.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loads[fixtureKey(basename, locale)]++
	if s.failWith != nil {
		return nil, s.failWith
	}

	values, ok := s.fixtures[fixtureKey(basename, locale)]
	if !ok {
		return nil, msgsource.ErrBundleNotFound
	}
	return msgsource.NewBundle(basename, locale, values), nil
}

func TestLiteral(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"btn.1": "OK"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	value, err := r.Literal(ctx, "btn.1", language.English)
	require.NoError(t, err)
	require.Equal(t, "OK", value)

	_, err = r.Literal(ctx, "btn.2", language.English)
	require.ErrorIs(t, err, msgsource.ErrMessageNotFound)
}

func TestBasenamePriority(t *testing.T) {
	testCases := []struct {
		name     string
		primary  map[string]string
		fallback map[string]string
		expected string
	}{
		{
			name:     "later basename fills gaps",
			primary:  map[string]string{"other": "x"},
			fallback: map[string]string{"k": "from-b"},
			expected: "from-b",
		},
		{
			name:     "earlier basename wins conflicts",
			primary:  map[string]string{"k": "from-a"},
			fallback: map[string]string{"k": "from-b"},
			expected: "from-a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ld := newStubLoader()
			ld.add("a", language.English, tc.primary)
			ld.add("b", language.English, tc.fallback)

			r := msgsource.NewResolver(ld, msgsource.WithBasenames("a", "b"))
			value, err := r.Literal(context.Background(), "k", language.English)
			require.NoError(t, err)
			require.Equal(t, tc.expected, value)
		})
	}
}

func TestFormatRendersAndReuses(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"hello": "Hello, {0}!"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	first, err := r.Format(ctx, "hello", language.English)
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", first.Render("World"))
	require.Equal(t, "Hello, again!", first.Render("again"))

	second, err := r.Format(ctx, "hello", language.English)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestFormatIsPerLocale(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"n": "{0}"})
	ld.add("messages", language.German, map[string]string{"n": "{0}"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	en, err := r.Format(ctx, "n", language.English)
	require.NoError(t, err)
	de, err := r.Format(ctx, "n", language.German)
	require.NoError(t, err)

	require.NotSame(t, en, de)
	require.Equal(t, "1,234,567", en.Render(1234567))
	require.Equal(t, "1.234.567", de.Render(1234567))
}

func TestRender(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{
		"plain": "no args here",
		"hello": "Hello, {0}!",
	})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	plain, err := r.Render(ctx, "plain", language.English)
	require.NoError(t, err)
	require.Equal(t, "no args here", plain)

	hello, err := r.Render(ctx, "hello", language.English, "World")
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", hello)
}

func TestRepeatLookupsAreCached(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"btn.1": "OK"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	for range 5 {
		_, err := r.Literal(ctx, "btn.1", language.English)
		require.NoError(t, err)
	}

	require.Equal(t, 1, ld.loadCount("messages", language.English))
}

func TestConcurrentFirstLookupConverges(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"hello": "Hello, {0}!"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	const callers = 32
	var (
		start   sync.WaitGroup
		done    sync.WaitGroup
		results = make([]msgsource.CompiledFormat, callers)
		failed  atomic.Int32
	)

	start.Add(1)
	for i := range callers {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			compiled, err := r.Format(ctx, "hello", language.English)
			if err != nil {
				failed.Add(1)
				return
			}
			results[i] = compiled
		}()
	}
	start.Done()
	done.Wait()

	require.Zero(t, failed.Load())
	for i := 1; i < callers; i++ {
		require.Same(t, results[0], results[i])
	}

	// Racing callers may have loaded redundantly, but afterwards exactly one
	// canonical bundle is cached and further lookups hit it.
	loadsAfterRace := ld.loadCount("messages", language.English)
	_, err := r.Format(ctx, "hello", language.English)
	require.NoError(t, err)
	require.Equal(t, loadsAfterRace, ld.loadCount("messages", language.English))
}

func TestAbsentBundleIsRetried(t *testing.T) {
	ld := newStubLoader()

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	for range 3 {
		_, err := r.Literal(ctx, "k", language.English)
		require.ErrorIs(t, err, msgsource.ErrMessageNotFound)
	}
	require.Equal(t, 3, ld.loadCount("messages", language.English))

	// The bundle appearing later is picked up without any invalidation.
	ld.add("messages", language.English, map[string]string{"k": "now here"})
	value, err := r.Literal(ctx, "k", language.English)
	require.NoError(t, err)
	require.Equal(t, "now here", value)
}

func TestLoaderFailurePropagates(t *testing.T) {
	ld := newStubLoader()
	ld.failWith = errors.New("storage exploded")

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))

	_, err := r.Literal(context.Background(), "k", language.English)
	require.Error(t, err)
	require.NotErrorIs(t, err, msgsource.ErrMessageNotFound)
	require.Contains(t, err.Error(), "storage exploded")
}

func TestInvalidateReloadsBundleAndFormats(t *testing.T) {
	ld := newStubLoader()
	ld.add("a", language.English, map[string]string{"k": "{0} from a"})
	ld.add("b", language.English, map[string]string{"other": "{0} from b"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("a", "b"))
	ctx := context.Background()

	formatA, err := r.Format(ctx, "k", language.English)
	require.NoError(t, err)
	formatB, err := r.Format(ctx, "other", language.English)
	require.NoError(t, err)

	r.Invalidate("a", language.English)

	reloadedA, err := r.Format(ctx, "k", language.English)
	require.NoError(t, err)
	require.NotSame(t, formatA, reloadedA)
	require.Equal(t, 2, ld.loadCount("a", language.English))

	// The sibling bundle's cache entries are untouched.
	sameB, err := r.Format(ctx, "other", language.English)
	require.NoError(t, err)
	require.Same(t, formatB, sameB)
	require.Equal(t, 1, ld.loadCount("b", language.English))
}

func TestFlush(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"k": "v"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := context.Background()

	_, err := r.Literal(ctx, "k", language.English)
	require.NoError(t, err)

	r.Flush()

	_, err = r.Literal(ctx, "k", language.English)
	require.NoError(t, err)
	require.Equal(t, 2, ld.loadCount("messages", language.English))
}

func TestZeroDurationAlwaysRefreshes(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"hello": "Hello, {0}!"})

	r := msgsource.NewResolver(ld,
		msgsource.WithBasenames("messages"),
		msgsource.WithCacheDuration(0))
	ctx := context.Background()

	first, err := r.Format(ctx, "hello", language.English)
	require.NoError(t, err)

	// The stub returns a new bundle identity per load, so the refreshed
	// bundle must come with freshly compiled formats, never stale ones.
	second, err := r.Format(ctx, "hello", language.English)
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, 2, ld.loadCount("messages", language.English))
}

func TestParentChain(t *testing.T) {
	parentLoader := newStubLoader()
	parentLoader.add("shared", language.English, map[string]string{"k": "from parent"})
	parent := msgsource.NewResolver(parentLoader, msgsource.WithBasenames("shared"))

	childLoader := newStubLoader()
	child := msgsource.NewResolver(childLoader,
		msgsource.WithBasenames("local"),
		msgsource.WithParent(parent))

	ctx := context.Background()

	_, err := child.Literal(ctx, "k", language.English)
	require.True(t, msgsource.IsNotFound(err))

	require.NotNil(t, child.Parent())
	value, err := child.Parent().Literal(ctx, "k", language.English)
	require.NoError(t, err)
	require.Equal(t, "from parent", value)
}

func TestWarm(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{
		"hello": "Hello, {0}!",
		"bye":   "Bye, {0}!",
	})
	ld.add("errors", language.English, map[string]string{"oops": "Oops"})

	r := msgsource.NewResolver(ld,
		msgsource.WithBasenames("messages", "errors", "absent"),
		msgsource.WithWarmConcurrency(2))
	ctx := context.Background()

	require.NoError(t, r.Warm(ctx, language.English))
	require.Equal(t, 1, ld.loadCount("messages", language.English))
	require.Equal(t, 1, ld.loadCount("errors", language.English))

	// Lookups after warming hit the caches only.
	warmed, err := r.Format(ctx, "hello", language.English)
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", warmed.Render("World"))
	require.Equal(t, 1, ld.loadCount("messages", language.English))
}

func TestWithConfig(t *testing.T) {
	t.Setenv("MESSAGE_BASENAMES", "messages")
	t.Setenv("MESSAGE_CACHE_DURATION_SECONDS", "-1")

	cfg, err := config.FromEnv[config.Config]()
	require.NoError(t, err)

	ld := newStubLoader()
	ld.add("messages", language.English, map[string]string{"k": "v"})

	r := msgsource.NewResolver(ld, msgsource.WithConfig(&cfg))
	require.Equal(t, []string{"messages"}, r.Basenames())

	value, err := r.Literal(context.Background(), "k", language.English)
	require.NoError(t, err)
	require.Equal(t, "v", value)
}

func TestRenderCtxUsesContextLocale(t *testing.T) {
	ld := newStubLoader()
	ld.add("messages", language.Swahili, map[string]string{"hello": "Habari, {0}!"})

	r := msgsource.NewResolver(ld, msgsource.WithBasenames("messages"))
	ctx := msgsource.ToContext(context.Background(), language.Swahili)

	value, err := r.RenderCtx(ctx, "hello", "Dunia")
	require.NoError(t, err)
	require.Equal(t, "Habari, Dunia!", value)
}
