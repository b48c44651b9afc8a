package printing

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const (
	DefaultPad = " "
	ellipsis   = "..."
	// ellipsis plus two columns of guaranteed separation
	truncateReserve = len(ellipsis) + 2
)

// LineFormatter lays out text for a print head of a fixed column count.
// It holds no mutable state and can be shared between goroutines.
type LineFormatter struct {
	width int
	// own condition: runewidth.DefaultCondition follows the host locale
	cond *runewidth.Condition
}

func NewLineFormatter(width int) (*LineFormatter, error) {
	if width <= 0 {
		return nil, ErrInvalidWidth
	}
	cond := &runewidth.Condition{EastAsianWidth: false, StrictEmojiNeutral: true}
	return &LineFormatter{width: width, cond: cond}, nil
}

func (f *LineFormatter) Width() int { return f.width }

// Justify places label flush left and value flush right on one line of exactly
// f.Width() columns, filling the gap with pad. When both do not fit the label
// is cut and suffixed with "...".
func (f *LineFormatter) Justify(label, value, pad string) (string, error) {
	if err := f.checkPad(pad); err != nil {
		return "", err
	}

	labelWidth := f.cond.StringWidth(label)
	valueWidth := f.cond.StringWidth(value)
	if labelWidth+valueWidth > f.width {
		keep := f.width - valueWidth - truncateReserve
		if keep < 0 {
			return "", ErrContentTooWideForWidth
		}
		label = f.cond.Truncate(label, keep, "") + ellipsis
		labelWidth = f.cond.StringWidth(label)
	}

	var b strings.Builder
	b.Grow(len(label) + len(value) + f.width)
	b.WriteString(label)
	b.WriteString(strings.Repeat(pad, f.width-labelWidth-valueWidth))
	b.WriteString(value)
	return b.String(), nil
}

// Rule returns a horizontal rule spanning the full print width.
func (f *LineFormatter) Rule(ch string) (string, error) {
	if err := f.checkPad(ch); err != nil {
		return "", err
	}
	return strings.Repeat(ch, f.width), nil
}

func (f *LineFormatter) checkPad(pad string) error {
	if utf8.RuneCountInString(pad) != 1 || f.cond.StringWidth(pad) != 1 {
		return ErrInvalidPadChar
	}
	return nil
}
