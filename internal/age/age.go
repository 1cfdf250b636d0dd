// Package age classifies devices by time since enrollment.
package age

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category buckets a device by age.
type Category string

const (
	Good    Category = "good"
	Warning Category = "warning"
	Danger  Category = "danger"
)

// Thresholds in years.
const (
	WarningYears = 3.0
	DangerYears  = 4.0
)

// msPerYear is one Julian year in milliseconds.
const msPerYear = 1000 * 60 * 60 * 24 * 365.25

// ErrUnparseable is returned when no known layout matches a timestamp.
var ErrUnparseable = errors.New("unparseable timestamp")

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Label returns the status text shown for the category.
func (c Category) Label() string {
	switch c {
	case Danger:
		return "REPLACE NOW"
	case Warning:
		return "MONITOR"
	default:
		return "GOOD"
	}
}

// Years returns the fractional years elapsed between enrolled and now.
func Years(enrolled, now time.Time) float64 {
	return float64(now.Sub(enrolled).Milliseconds()) / msPerYear
}

// Classify buckets an age in years. Boundaries are inclusive at 3 and 4.
func Classify(years float64) Category {
	switch {
	case years >= DangerYears:
		return Danger
	case years >= WarningYears:
		return Warning
	default:
		return Good
	}
}

// Parse reads a vendor timestamp. Both T and space separators are accepted,
// offsets may omit the colon, and zone-less layouts are taken as UTC.
func Parse(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, ts)
}

// Resolve returns the first non-empty candidate, or now formatted as RFC 3339
// when every candidate is empty.
func Resolve(now time.Time, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return now.UTC().Format(time.RFC3339)
}

// Assessment is the computed age of one device.
type Assessment struct {
	Enrolled time.Time
	Years    float64
	Category Category
}

// Assess resolves the enrollment candidates, parses the winner and
// classifies it.
func Assess(now time.Time, candidates ...string) (Assessment, error) {
	enrolled, err := Parse(Resolve(now, candidates...))
	if err != nil {
		return Assessment{}, err
	}
	years := Years(enrolled, now)
	return Assessment{Enrolled: enrolled, Years: years, Category: Classify(years)}, nil
}
