// Package format compiles positional message templates into reusable
// formatters. A template holds literal text and placeholders of the form
// {0}, {1} and so on; braces that do not enclose an argument index are kept
// verbatim. Numeric arguments are rendered with the conventions of the
// locale the template was compiled for.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type segment struct {
	literal string
	arg     int // valid when literal is empty and isArg is set
	isArg   bool
}

// Format is an immutable compiled template bound to one locale. It is safe
// for concurrent use.
type Format struct {
	locale   language.Tag
	printer  *message.Printer
	segments []segment
	template string
}

// Compile parses the template for the given locale.
func Compile(template string, locale language.Tag) (*Format, error) {
	segments, err := parse(template)
	if err != nil {
		return nil, err
	}

	return &Format{
		locale:   locale,
		printer:  message.NewPrinter(locale),
		segments: segments,
		template: template,
	}, nil
}

// MustCompile is Compile that panics on error, for static templates.
func MustCompile(template string, locale language.Tag) *Format {
	f, err := Compile(template, locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Locale returns the locale the format was compiled for.
func (f *Format) Locale() language.Tag {
	return f.locale
}

// Template returns the raw template string.
func (f *Format) Template() string {
	return f.template
}

// Render substitutes the positional arguments into the template. A
// placeholder with no matching argument is emitted verbatim.
func (f *Format) Render(args ...any) string {
	var b strings.Builder
	for _, seg := range f.segments {
		if !seg.isArg {
			b.WriteString(seg.literal)
			continue
		}
		if seg.arg >= len(args) {
			b.WriteByte('{')
			b.WriteString(strconv.Itoa(seg.arg))
			b.WriteByte('}')
			continue
		}
		b.WriteString(f.renderArg(args[seg.arg]))
	}
	return b.String()
}

// renderArg localizes numeric arguments; everything else renders with its
// default string form.
func (f *Format) renderArg(arg any) string {
	switch v := arg.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return f.printer.Sprint(number.Decimal(v))
	case float32, float64:
		return f.printer.Sprint(number.Decimal(v))
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func parse(template string) ([]segment, error) {
	var (
		segments []segment
		literal  strings.Builder
	)

	for i := 0; i < len(template); {
		c := template[i]
		if c != '{' {
			literal.WriteByte(c)
			i++
			continue
		}

		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			literal.WriteByte(c)
			i++
			continue
		}

		inner := template[i+1 : i+end]
		idx, err := strconv.Atoi(inner)
		if err != nil || idx < 0 {
			// Not a positional placeholder, keep the brace as text.
			literal.WriteByte(c)
			i++
			continue
		}

		if literal.Len() > 0 {
			segments = append(segments, segment{literal: literal.String()})
			literal.Reset()
		}
		segments = append(segments, segment{arg: idx, isArg: true})
		i += end + 1
	}

	if literal.Len() > 0 {
		segments = append(segments, segment{literal: literal.String()})
	}

	return segments, nil
}
