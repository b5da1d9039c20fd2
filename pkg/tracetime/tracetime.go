// Package tracetime holds the timestamp conventions shared by every trace file: a fixed
// "YYYY-MM-DD HH:MM:SS" layout with no offset, and minute-granularity bucketing.
package tracetime

import (
	"strings"
	"time"
	"unicode"

	"github.com/scusemua/trace-analyzer/m/v2/internal/domain"
)

const (
	Layout = "2006-01-02 15:04:05"

	// NoValue is what upstream extracts write for a timestamp that was never recorded.
	NoValue = "None"
)

// Parse returns nil for empty text and for the "None"/"null" placeholders.
// Any other text must match Layout exactly.
func Parse(text string) (*time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == NoValue || text == "null" {
		return nil, nil
	}

	ts, err := time.Parse(Layout, text)
	if err != nil {
		return nil, domain.Errorf(domain.ErrFormat, "timestamp \"%s\" does not match \"%s\"", text, Layout)
	}

	return &ts, nil
}

func Format(t time.Time) string {
	return t.Format(Layout)
}

func FormatOptional(t *time.Time) string {
	if t == nil {
		return NoValue
	}
	return Format(*t)
}

// DurationToMinutes keeps sub-second precision as a fractional minute.
func DurationToMinutes(d time.Duration) float64 {
	return d.Minutes()
}

func FloorToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

func NextMinute(t time.Time) time.Time {
	return t.Add(time.Minute)
}

// Minutes returns every whole minute from FloorToMinute(from) up to, but excluding, to.
func Minutes(from time.Time, to time.Time) []time.Time {
	minutes := make([]time.Time, 0)
	_ = EachMinute(from, to, func(m time.Time) error {
		minutes = append(minutes, m)
		return nil
	})
	return minutes
}

// EachMinute calls fn for every minute Minutes would return, stopping at the first error.
func EachMinute(from time.Time, to time.Time, fn func(time.Time) error) error {
	for m := FloorToMinute(from); m.Before(to); m = NextMinute(m) {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// StripZone removes a trailing zone abbreviation or numeric offset ("PST", "UTC", "+0800") that some
// extracts append to the layout.
func StripZone(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= len(Layout) {
		return text
	}

	suffix := strings.TrimSpace(text[len(Layout):])
	if suffix == "" {
		return text[:len(Layout)]
	}

	for _, r := range suffix {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '-' && r != ':' {
			return text
		}
	}

	return text[:len(Layout)]
}

// Text is a timestamp field of a CSV row. It accepts the layout with or without a zone suffix.
type Text struct {
	Time  time.Time
	Valid bool
}

func (t *Text) UnmarshalText(text []byte) error {
	ts, err := Parse(StripZone(string(text)))
	if err != nil {
		return err
	}
	if ts == nil {
		*t = Text{}
		return nil
	}
	*t = Text{Time: *ts, Valid: true}
	return nil
}

func (t Text) String() string {
	if !t.Valid {
		return NoValue
	}
	return Format(t.Time)
}
