package consents

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNoConsents is returned when the reference lists yield no consent numbers.
	ErrNoConsents = errors.New("consents: no consent numbers")
	// ErrColumnNotFound is returned when a reference list lacks the consent column.
	ErrColumnNotFound = errors.New("consents: column not found")
)

// ConsentNo is a normalized consent number.
type ConsentNo string

// Normalize trims and upper-cases a raw consent number.
func Normalize(raw string) ConsentNo {
	return ConsentNo(strings.ToUpper(strings.TrimSpace(raw)))
}

// String returns the raw string.
func (c ConsentNo) String() string { return string(c) }

// Set is a sorted list of unique consent numbers.
type Set []ConsentNo

// NewSet merges raw lists into a sorted set, dropping blanks.
func NewSet(lists ...[]string) Set {
	seen := make(map[ConsentNo]struct{})
	for _, list := range lists {
		for _, raw := range list {
			c := Normalize(raw)
			if c == "" {
				continue
			}
			seen[c] = struct{}{}
		}
	}
	set := make(Set, 0, len(seen))
	for c := range seen {
		set = append(set, c)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Strings returns the set as plain strings for query binding.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// Contains reports whether the set holds c.
func (s Set) Contains(c ConsentNo) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= c })
	return i < len(s) && s[i] == c
}
