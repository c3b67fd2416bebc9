package feeds

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dateLayouts covers RSS pubDate (RFC822 and its common variants) and Atom timestamps.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// rfc822Zones are the named North American zones RFC 822 allows. time.Parse
// only knows their offsets when the local zone happens to match.
var rfc822Zones = map[string]int{
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
}

// NormalizeDate converts raw into epoch milliseconds, falling back to now.
func NormalizeDate(raw string) int64 {
	return NormalizeDateWith(raw, time.Now)
}

// NormalizeDateWith is NormalizeDate with an injected clock. Empty, unparseable
// or zero dates all resolve to now().
func NormalizeDateWith(raw string, now func() time.Time) int64 {
	if now == nil {
		now = time.Now
	}
	if t, ok := parseDate(raw); ok {
		return t.UnixMilli()
	}
	return now().UnixMilli()
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return validDate(fixNamedZone(t))
		}
	}

	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return validDate(fixNamedZone(t))
}

func fixNamedZone(t time.Time) time.Time {
	name, offset := t.Zone()
	if offset != 0 {
		return t
	}
	if known, ok := rfc822Zones[strings.ToUpper(name)]; ok {
		y, mo, d := t.Date()
		h, mi, s := t.Clock()
		return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.FixedZone(name, known))
	}
	return t
}

func validDate(t time.Time) (time.Time, bool) {
	if t.IsZero() || t.Year() < 1 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return t, true
}
