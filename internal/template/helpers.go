package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultDatePattern is the format_date pattern used when none is given.
const DefaultDatePattern = "yyyy-MM-dd"

// Helpers returns the built-in template helpers.
func Helpers() starlark.StringDict {
	return starlark.StringDict{
		"format_number": starlark.NewBuiltin("format_number", formatNumber),
		"format_date":   starlark.NewBuiltin("format_date", formatDate),
	}
}

// format_number(value, decimal_places=2, dp=None, grouping=False)
func formatNumber(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		value    starlark.Value
		places   = 2
		dp       starlark.Value = starlark.None
		grouping bool
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"value", &value, "decimal_places?", &places, "dp?", &dp, "grouping?", &grouping); err != nil {
		return nil, err
	}
	if dp != starlark.None {
		n, err := starlark.AsInt32(dp)
		if err != nil {
			return nil, fmt.Errorf("%s: dp: %w", b.Name(), err)
		}
		places = n
	}
	if places < 0 {
		places = 0
	}

	f, err := toFloat(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.String(FormatNumber(f, places, grouping)), nil
}

// FormatNumber formats f with a fixed number of decimal places. With grouping,
// thousands separators are added.
func FormatNumber(f float64, places int, grouping bool) string {
	if grouping {
		return message.NewPrinter(language.English).Sprintf(fmt.Sprintf("%%.%df", places), f)
	}
	return strconv.FormatFloat(f, 'f', places, 64)
}

func toFloat(v starlark.Value) (float64, error) {
	switch val := v.(type) {
	case starlark.Int, starlark.Float:
		f, _ := starlark.AsFloat(val)
		return f, nil
	case starlark.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", string(val))
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %s", v.Type())
	}
}

// format_date(value, pattern="yyyy-MM-dd")
func formatDate(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		value   starlark.Value
		pattern = DefaultDatePattern
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "value", &value, "pattern?", &pattern); err != nil {
		return nil, err
	}

	var t time.Time
	switch val := value.(type) {
	case starlarktime.Time:
		t = time.Time(val)
	case starlark.String:
		parsed, err := parseDate(string(val))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		t = parsed
	default:
		return nil, fmt.Errorf("%s: not a date: %s", b.Name(), value.Type())
	}
	return starlark.String(FormatDate(t, pattern)), nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date: %q", s)
}

// dateTokens are matched longest first at each position of a pattern.
var dateTokens = []string{"yyyy", "MMMM", "MMM", "yy", "MM", "dd", "HH", "hh", "mm", "ss", "M", "d", "H", "h", "m", "s", "A", "a"}

// FormatDate formats t with a moment-style pattern. Text inside square
// brackets is copied literally.
func FormatDate(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '[' {
			if end := strings.IndexByte(pattern[i:], ']'); end > 0 {
				b.WriteString(pattern[i+1 : i+end])
				i += end + 1
				continue
			}
		}

		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(pattern[i:], tok) {
				b.WriteString(dateField(t, tok))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

func dateField(t time.Time, tok string) string {
	hour12 := t.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	switch tok {
	case "yyyy":
		return fmt.Sprintf("%04d", t.Year())
	case "yy":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "dd":
		return fmt.Sprintf("%02d", t.Day())
	case "d":
		return strconv.Itoa(t.Day())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return strconv.Itoa(t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", hour12)
	case "h":
		return strconv.Itoa(hour12)
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "m":
		return strconv.Itoa(t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return strconv.Itoa(t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	}
	return tok
}
