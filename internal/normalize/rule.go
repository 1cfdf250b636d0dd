// Package normalize maps vendor device payloads onto model.Device.
package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Extractor pulls one candidate value out of a raw vendor record.
// An empty result means the candidate is absent.
type Extractor func(raw map[string]any) string

// Path returns an Extractor for a dotted field path such as "user.name".
// A path that runs through a non-object value yields nothing.
func Path(path string) Extractor {
	parts := strings.Split(path, ".")
	return func(raw map[string]any) string {
		var cur any = raw
		for _, part := range parts {
			obj, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			cur = obj[part]
		}
		return scalar(cur)
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Rule is an ordered list of candidate extractors with a named default.
// The first non-empty candidate wins.
type Rule struct {
	Candidates []Extractor
	Default    string
	// DefaultNow substitutes the current time when every candidate is empty.
	DefaultNow bool
}

// Resolve evaluates the candidates in priority order.
func (r Rule) Resolve(raw map[string]any, now time.Time) string {
	for _, extract := range r.Candidates {
		if v := extract(raw); v != "" {
			return v
		}
	}
	if r.DefaultNow {
		return now.UTC().Format(time.RFC3339)
	}
	return r.Default
}
