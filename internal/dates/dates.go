// Package dates turns the date tokens found in bank statements into calendar dates.
package dates

import (
	"strings"
	"time"
)

// Layouts are tried in order; the first match wins. Day/month/year is tried
// before month/day/year, so "01/02/2020" is 1 February.
var Layouts = []string{
	"2/1/2006",   // DD/MM/YYYY
	"2/1/06",     // DD/MM/YY
	"2006-1-2",   // YYYY-MM-DD
	"1/2/2006",   // MM/DD/YYYY
	"1/2/06",     // MM/DD/YY
	"2 Jan 2006", // 07 Sep 2025
	"2 Jan 06",   // 07 Sep 25
	"2-Jan-2006", // 07-Sep-2025
	"2-Jan-06",   // 07-Sep-25
	"20060102",   // OFX
}

// monthNameLayout is retried after locale substitutions.
const monthNameLayout = "2 Jan 2006"

// localeFixes maps month fragments seen in exported statements to English abbreviations.
var localeFixes = []struct{ from, to string }{
	{" ec ", " dec "},
}

// Parse returns the calendar date in s, or false if no layout matches.
func Parse(s string) (time.Time, bool) {
	s = clean(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	lower := strings.ToLower(s)
	for _, fix := range localeFixes {
		if !strings.Contains(lower, fix.from) {
			continue
		}
		if t, err := time.Parse(monthNameLayout, strings.ReplaceAll(lower, fix.from, fix.to)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clean trims whitespace and a leading QIF date marker ("D07/09/2025").
func clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 && (s[0] == 'D' || s[0] == 'd') && s[1] >= '0' && s[1] <= '9' {
		s = strings.TrimSpace(s[1:])
	}
	return s
}
