// Package ics writes iCalendar (RFC 5545) text. It is a plain text emitter:
// the caller decides which properties to write and in what order, so repeated
// exports of the same data produce byte-identical output.
package ics

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"

	// Lines longer than this many octets are folded with a CRLF + space.
	foldWidth = 75
)

var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// ByDay returns the two-letter RRULE code for a weekday (SU..SA).
func ByDay(w time.Weekday) string {
	return weekdayCodes[int(w)%7]
}

// FormatDate renders an all-day date value (8-digit compact form).
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatDateTime renders a floating local date-time value.
func FormatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}

// FormatUTC renders a UTC timestamp value, e.g. for DTSTAMP.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}

// EscapeText applies the TEXT escaping rule: backslash, semicolon, comma and
// embedded newlines must be escaped inside free-text property values.
func EscapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\;`)
		case ',':
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			// bare CR is dropped; CRLF pairs collapse to the escaped LF
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Builder accumulates folded iCalendar content.
type Builder struct {
	sb strings.Builder
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Line writes one content line, folding it at 75 octets per RFC 5545.
func (b *Builder) Line(line string) {
	raw := []byte(line)
	for len(raw) > foldWidth {
		cut := foldWidth
		// never split a UTF-8 sequence
		for cut > 1 && raw[cut]&0xC0 == 0x80 {
			cut--
		}
		b.sb.Write(raw[:cut])
		b.sb.WriteString("\r\n ")
		raw = raw[cut:]
	}
	b.sb.Write(raw)
	b.sb.WriteString("\r\n")
}

// Prop writes a NAME:VALUE line. The value is written verbatim; use EscapeText
// for free-text values first.
func (b *Builder) Prop(name, value string) {
	b.Line(name + ":" + value)
}

// TextProp writes a NAME:VALUE line with TEXT escaping applied to the value.
func (b *Builder) TextProp(name, value string) {
	b.Prop(name, EscapeText(value))
}

// Propf writes a formatted property line.
func (b *Builder) Propf(name, format string, args ...interface{}) {
	b.Prop(name, fmt.Sprintf(format, args...))
}

// Begin opens a component block.
func (b *Builder) Begin(component string) {
	b.Prop("BEGIN", component)
}

// End closes a component block.
func (b *Builder) End(component string) {
	b.Prop("END", component)
}

// String returns the accumulated calendar text.
func (b *Builder) String() string {
	return b.sb.String()
}
