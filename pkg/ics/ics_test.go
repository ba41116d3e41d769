package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeText(t *testing.T) {
	assert.Equal(t, `Math\, Science & more\; see notes\nline two`,
		EscapeText("Math, Science & more; see notes\nline two"))
	assert.Equal(t, `back\\slash`, EscapeText(`back\slash`))
	assert.Equal(t, `crlf\nkept`, EscapeText("crlf\r\nkept"))
}

func TestByDayCodes(t *testing.T) {
	assert.Equal(t, "SU", ByDay(time.Sunday))
	assert.Equal(t, "MO", ByDay(time.Monday))
	assert.Equal(t, "SA", ByDay(time.Saturday))
}

func TestDateFormats(t *testing.T) {
	d := time.Date(2025, time.September, 1, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "20250901", FormatDate(d))
	assert.Equal(t, "20250901T143000", FormatDateTime(d))
	assert.Equal(t, "20250901T143000Z", FormatUTC(d))
}

func TestBuilderFoldsLongLines(t *testing.T) {
	b := NewBuilder()
	long := "SUMMARY:" + strings.Repeat("a", 200)
	b.Line(long)
	out := b.String()

	for _, physical := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(physical), 76, "folded line too long: %q", physical)
	}
	// unfolding restores the original content line
	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	assert.Equal(t, long+"\r\n", unfolded)
}

func TestBuilderComponentBlocks(t *testing.T) {
	b := NewBuilder()
	b.Begin("VEVENT")
	b.TextProp("SUMMARY", "a;b")
	b.End("VEVENT")
	assert.Equal(t, "BEGIN:VEVENT\r\nSUMMARY:a\\;b\r\nEND:VEVENT\r\n", b.String())
}
