// Package classification holds the normalized set of classification names
// a user has chosen to italicize.
package classification

import (
	"sort"
	"strings"
)

// Set is an immutable set of trimmed, non-blank, unique classification
// names. The zero value is the empty set. A Set is safe to share between
// goroutines; every update produces a new Set.
type Set struct {
	names map[string]struct{}
}

// Empty returns the empty set.
func Empty() Set {
	return Set{}
}

// NewSet normalizes raw names: blank entries are dropped, surrounding
// whitespace is trimmed and duplicates collapse.
func NewSet(raw []string) Set {
	var names map[string]struct{}
	for _, r := range raw {
		name := strings.TrimSpace(r)
		if name == "" {
			continue
		}
		if names == nil {
			names = make(map[string]struct{}, len(raw))
		}
		names[name] = struct{}{}
	}
	return Set{names: names}
}

// ParseList parses a comma-separated list such as "Comment, Keyword".
func ParseList(raw string) Set {
	return NewSet(strings.Split(raw, ","))
}

// Contains reports whether name is a member. The name is compared as is.
func (s Set) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.names)
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool {
	return len(s.names) == 0
}

// Names returns the members in sorted order. The slice is a copy.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// With returns a new set that also contains name.
func (s Set) With(name string) Set {
	return NewSet(append(s.Names(), name))
}

// Without returns a new set with name removed.
func (s Set) Without(name string) Set {
	name = strings.TrimSpace(name)
	names := s.Names()
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return NewSet(out)
}

// Equal reports whether both sets have the same members.
func (s Set) Equal(other Set) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for name := range s.names {
		if _, ok := other.names[name]; !ok {
			return false
		}
	}
	return true
}

// String returns the sorted members joined with ", ".
func (s Set) String() string {
	return strings.Join(s.Names(), ", ")
}
