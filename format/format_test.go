package format_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/pitabwire/msgsource/format"
)

func TestRender(t *testing.T) {
	testCases := []struct {
		name     string
		template string
		locale   language.Tag
		args     []any
		expected string
	}{
		{
			name:     "single placeholder",
			template: "Hello, {0}!",
			locale:   language.English,
			args:     []any{"World"},
			expected: "Hello, World!",
		},
		{
			name:     "placeholders out of order",
			template: "{1} before {0}",
			locale:   language.English,
			args:     []any{"after", "first"},
			expected: "first before after",
		},
		{
			name:     "repeated placeholder",
			template: "{0} and {0}",
			locale:   language.English,
			args:     []any{"again"},
			expected: "again and again",
		},
		{
			name:     "no placeholders",
			template: "just text",
			locale:   language.English,
			args:     []any{"unused"},
			expected: "just text",
		},
		{
			name:     "missing argument kept verbatim",
			template: "have {0}, miss {1}",
			locale:   language.English,
			args:     []any{"one"},
			expected: "have one, miss {1}",
		},
		{
			name:     "non numeric braces are literal",
			template: "set {name} to {0}",
			locale:   language.English,
			args:     []any{"five"},
			expected: "set {name} to five",
		},
		{
			name:     "unterminated brace is literal",
			template: "dangling {0 here",
			locale:   language.English,
			args:     []any{"x"},
			expected: "dangling {0 here",
		},
		{
			name:     "localized number english",
			template: "count: {0}",
			locale:   language.English,
			args:     []any{1234567},
			expected: "count: 1,234,567",
		},
		{
			name:     "localized number german",
			template: "count: {0}",
			locale:   language.German,
			args:     []any{1234567},
			expected: "count: 1.234.567",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			compiled, err := format.Compile(tc.template, tc.locale)
			require.NoError(t, err)
			require.Equal(t, tc.expected, compiled.Render(tc.args...))
		})
	}
}

func TestCompileRetainsTemplateAndLocale(t *testing.T) {
	compiled, err := format.Compile("Hello, {0}!", language.French)
	require.NoError(t, err)
	require.Equal(t, "Hello, {0}!", compiled.Template())
	require.Equal(t, language.French, compiled.Locale())
}

func TestRenderIsReusable(t *testing.T) {
	compiled := format.MustCompile("Hello, {0}!", language.English)

	require.Equal(t, "Hello, World!", compiled.Render("World"))
	require.Equal(t, "Hello, again!", compiled.Render("again"))
	require.Equal(t, "Hello, World!", compiled.Render("World"))
}

func TestRenderConcurrent(t *testing.T) {
	compiled := format.MustCompile("{0} of {1}", language.English)

	results := make(chan string, 8)
	for range 8 {
		go func() {
			out := compiled.Render(3, 7)
			for range 100 {
				if next := compiled.Render(3, 7); next != out {
					out = next
				}
			}
			results <- out
		}()
	}
	for range 8 {
		require.Equal(t, "3 of 7", <-results)
	}
}
