package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

var (
	// dateLikePattern matches a YYYY, YYYY-MM or YYYY-MM-DD prefix.
	dateLikePattern = regexp.MustCompile(`^[12]\d{3}(-(0[1-9]|1[0-2])(-(0[1-9]|[12]\d|3[01]))?)?`)
	numberPattern   = regexp.MustCompile(`^-?\s*\d*\.?\d*$`)
)

// dateLayouts are tried in order. Layouts without a zone parse as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// CoerceValue converts a raw cell into a typed value. Date-like text is tried
// as a timestamp before numbers, so a bare year such as "2024" becomes a
// timestamp. Anything else is returned as the trimmed string.
func CoerceValue(raw string) core.Value {
	s := strings.TrimSpace(raw)

	if dateLikePattern.MatchString(s) {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return core.TimestampValue(t)
			}
		}
	}

	if numberPattern.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return core.NumberValue(f)
		}
	}

	return core.StringValue(s)
}
