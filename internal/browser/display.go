package browser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
)

// IndexDisplayMode selects how the selection is presented.
type IndexDisplayMode int

const (
	IndexDisplayAsIndex IndexDisplayMode = iota
	IndexDisplayAsIndexValue
)

// String returns the persisted name of the mode.
func (m IndexDisplayMode) String() string {
	if m == IndexDisplayAsIndex {
		return "index"
	}
	return "indexValue"
}

// ParseIndexDisplayMode converts a persisted display mode name.
func ParseIndexDisplayMode(s string) (IndexDisplayMode, bool) {
	switch s {
	case "index":
		return IndexDisplayAsIndex, true
	case "indexValue":
		return IndexDisplayAsIndexValue, true
	default:
		return IndexDisplayAsIndexValue, false
	}
}

// IndexDisplay holds index presentation settings.
type IndexDisplay struct {
	Mode   IndexDisplayMode
	Format string
}

// IndexDisplay returns the index presentation settings.
func (b *Browser) IndexDisplay() IndexDisplay {
	return b.display
}

// SetIndexDisplayMode selects whether the index is shown as an item number
// or as the index value. Listeners get EventIndexFormatChanged.
func (b *Browser) SetIndexDisplayMode(mode IndexDisplayMode) {
	if b.display.Mode != mode {
		b.display.Mode = mode
		b.notify(EventIndexFormatChanged)
	}
}

// SetIndexDisplayFormat sets the printf-style format for index values.
func (b *Browser) SetIndexDisplayFormat(format string) {
	if b.display.Format != format {
		b.display.Format = format
		b.notify(EventIndexFormatChanged)
	}
}

var (
	verbPattern = regexp.MustCompile(`%[-+ #0]*\d*(?:\.\d+)?[fFgGeEs]`)
	floatVerb   = regexp.MustCompile(`[fFgGeE]$`)
)

// FormatSpec splits format around its first float or string verb. ok is
// false when format holds none.
func FormatSpec(format string) (verb, prefix, suffix string, ok bool) {
	loc := verbPattern.FindStringIndex(format)
	if loc == nil {
		return "", "", "", false
	}
	return format[loc[0]:loc[1]], format[:loc[0]], format[loc[1]:], true
}

// FormattedIndexValue renders the master index value at item i with the
// display format. Only the first verb is applied; text around it is kept
// verbatim. A format without a usable verb, or a float verb applied to a
// value that does not parse as a number, yields the raw index value.
// Out-of-range items yield "".
func (b *Browser) FormattedIndexValue(i int) string {
	m := b.Master()
	if m == nil || i < 0 || i >= m.Len() {
		return ""
	}
	value := m.NthIndexValue(i)
	verb, prefix, suffix, ok := FormatSpec(b.display.Format)
	if !ok {
		return value
	}
	if floatVerb.MatchString(verb) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			slog.Debug("index value is not numeric, showing raw value", "browser", b.name, "index_value", value)
			return value
		}
		return prefix + fmt.Sprintf(verb, f) + suffix
	}
	return prefix + fmt.Sprintf(verb, value) + suffix
}
