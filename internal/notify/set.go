package notify

import (
	"context"
	"sort"
)

// Store persists the notified set.
type Store interface {
	// Load returns every persisted serial. A store with nothing saved yet
	// returns an empty slice and no error.
	Load(ctx context.Context) ([]string, error)
	// Save replaces the persisted set with serials.
	Save(ctx context.Context, serials []string) error
}

// Set is a set of serial numbers. It is not safe for concurrent use.
type Set map[string]struct{}

// NewSet builds a Set from serials.
func NewSet(serials ...string) Set {
	s := make(Set, len(serials))
	for _, serial := range serials {
		s.Add(serial)
	}
	return s
}

// Add inserts serial and reports whether it was new.
func (s Set) Add(serial string) bool {
	if serial == "" {
		return false
	}
	if _, ok := s[serial]; ok {
		return false
	}
	s[serial] = struct{}{}
	return true
}

// Has reports whether serial is in the set.
func (s Set) Has(serial string) bool {
	_, ok := s[serial]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for serial := range s {
		out = append(out, serial)
	}
	sort.Strings(out)
	return out
}
