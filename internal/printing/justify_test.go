package printing

import (
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFormatter(t *testing.T, width int) *LineFormatter {
	t.Helper()
	f, err := NewLineFormatter(width)
	require.NoError(t, err)
	return f
}

func TestNewLineFormatterRejectsNonPositiveWidth(t *testing.T) {
	for _, w := range []int{0, -1} {
		_, err := NewLineFormatter(w)
		assert.ErrorIs(t, err, ErrInvalidWidth, "width %d", w)
	}
}

func TestJustify(t *testing.T) {
	tests := []struct {
		name         string
		width        int
		label, value string
		pad          string
		want         string
	}{
		{name: "fits", width: 10, label: "Milk", value: "14", pad: " ", want: "Milk    14"},
		{name: "custom pad", width: 10, label: "Milk", value: "14", pad: "*", want: "Milk****14"},
		{name: "exact fit", width: 6, label: "Milk", value: "14", pad: " ", want: "Milk14"},
		{name: "empty value", width: 5, label: "Eggs", value: "", pad: ".", want: "Eggs."},
		{name: "truncated", width: 20, label: "Extremely Long Product Name", value: "1", pad: " ", want: "Extremely Long...  1"},
		{name: "label cut to nothing", width: 10, label: "abcdefgh", value: "12345", pad: " ", want: "...  12345"},
		{name: "wide runes", width: 10, label: "日本語テスト", value: "1", pad: " ", want: "日本...  1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustFormatter(t, tt.width)
			got, err := f.Justify(tt.label, tt.value, tt.pad)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.width, runewidth.StringWidth(got))
		})
	}
}

func TestJustifyKeepsValueIntact(t *testing.T) {
	f := mustFormatter(t, 48)
	got, err := f.Justify("Organic Free Range Extra Large Brown Eggs, Dozen Pack", "12", DefaultPad)
	require.NoError(t, err)
	assert.Len(t, got, 48)
	assert.Equal(t, "12", got[46:])
	assert.Equal(t, "...  ", got[41:46])
}

func TestJustifyIgnoresEastAsianLocale(t *testing.T) {
	prev := runewidth.DefaultCondition
	runewidth.DefaultCondition = &runewidth.Condition{EastAsianWidth: true}
	t.Cleanup(func() { runewidth.DefaultCondition = prev })

	f := mustFormatter(t, 10)
	got, err := f.Justify("Café", "1", DefaultPad)
	require.NoError(t, err)
	assert.Equal(t, "Café     1", got)

	got, err = f.Justify("Crème brûlée tart", "2", DefaultPad)
	require.NoError(t, err)
	assert.Equal(t, "Crèm...  2", got)
	assert.Equal(t, 10, utf8.RuneCountInString(got))

	got, err = f.Justify("Tea", "1", "·")
	require.NoError(t, err)
	assert.Equal(t, "Tea······1", got)
}

func TestJustifyInvalidPad(t *testing.T) {
	f := mustFormatter(t, 10)
	for _, pad := range []string{"", "ab", "日"} {
		_, err := f.Justify("Milk", "14", pad)
		assert.ErrorIs(t, err, ErrInvalidPadChar, "pad %q", pad)
	}
}

func TestJustifyValueTooWide(t *testing.T) {
	f := mustFormatter(t, 20)
	_, err := f.Justify("abc", "0123456789012345678", DefaultPad)
	assert.ErrorIs(t, err, ErrContentTooWideForWidth)

	_, err = f.Justify("", "012345678901234567890123", DefaultPad)
	assert.ErrorIs(t, err, ErrContentTooWideForWidth)
}

func TestRule(t *testing.T) {
	f := mustFormatter(t, 12)
	got, err := f.Rule("-")
	require.NoError(t, err)
	assert.Equal(t, "------------", got)

	_, err = f.Rule("--")
	assert.ErrorIs(t, err, ErrInvalidPadChar)
}
