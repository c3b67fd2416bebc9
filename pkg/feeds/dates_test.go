package feeds

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestNormalizeDateParsesKnownFormats(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"Mon, 01 Jan 2024 00:00:00 GMT", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"Mon, 01 Jan 2024 05:30:00 +0530", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"Mon, 1 Jan 2024 00:00:00 +0000", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"Tue, 02 Jan 2024 00:00:00 EST", time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC)},
		{"2024-01-02T00:00:00Z", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-01-02T03:04:05.123+02:00", time.Date(2024, 1, 2, 1, 4, 5, 123000000, time.UTC)},
		{"  2024-01-02  ", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"January 2, 2024", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := NormalizeDateWith(tt.raw, fixedClock)
		if got != tt.want.UnixMilli() {
			t.Errorf("NormalizeDateWith(%q) = %s, want %s", tt.raw, time.UnixMilli(got).UTC(), tt.want)
		}
	}
}

func TestNormalizeDateFallsBackToNow(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-date", "not a date", "2024-13-45"} {
		if got := NormalizeDateWith(raw, fixedClock); got != fixedNow.UnixMilli() {
			t.Errorf("NormalizeDateWith(%q) = %d, want now", raw, got)
		}
	}
}

func TestNormalizeDateUsesWallClock(t *testing.T) {
	before := time.Now().UnixMilli()
	got := NormalizeDate("not-a-date")
	after := time.Now().UnixMilli()
	if got < before || got > after {
		t.Errorf("NormalizeDate fallback %d outside [%d, %d]", got, before, after)
	}
}
