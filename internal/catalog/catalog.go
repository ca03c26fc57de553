// Package catalog resolves recognized codes to reference entries.
package catalog

import (
	"regexp"
	"strings"
)

// Entry is one reference record. Number is matched as a prefix.
type Entry struct {
	Number string `json:"Number" yaml:"Number"`
	Name   string `json:"Name" yaml:"Name"`
	Year   string `json:"Year" yaml:"Year"`
	Color  string `json:"Color" yaml:"Color"`
}

// Ambiguity records two entries whose Numbers overlap as prefixes. First
// always wins a code both could match. Shadowed is set when First.Number is a
// prefix of Second.Number, so Second can never be returned at all.
type Ambiguity struct {
	First, Second Entry
	Shadowed      bool
}

// codePattern is two 3-5 character uppercase alphanumeric segments joined by a hyphen.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{3,5}-[A-Z0-9]{3,5}$`)

// Valid reports whether text, trimmed, has the structure of a code.
func Valid(text string) bool {
	return codePattern.MatchString(strings.TrimSpace(text))
}

// Prefix returns the segment before the first hyphen of a valid code.
func Prefix(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !codePattern.MatchString(text) {
		return "", false
	}
	prefix, _, _ := strings.Cut(text, "-")
	return prefix, true
}

// Catalog is an immutable, ordered lookup table.
type Catalog struct {
	entries     []Entry
	ambiguities []Ambiguity
	dropped     int
}

// New builds a catalog preserving load order. Entries with an empty Number
// are dropped since they would match every code.
func New(entries []Entry) *Catalog {
	c := &Catalog{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		e.Number = strings.TrimSpace(e.Number)
		if e.Number == "" {
			c.dropped++
			continue
		}
		c.entries = append(c.entries, e)
	}
	c.ambiguities = findAmbiguities(c.entries)
	return c
}

func findAmbiguities(entries []Entry) []Ambiguity {
	var out []Ambiguity
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i].Number, entries[j].Number
			switch {
			case strings.HasPrefix(b, a):
				out = append(out, Ambiguity{First: entries[i], Second: entries[j], Shadowed: true})
			case strings.HasPrefix(a, b):
				out = append(out, Ambiguity{First: entries[i], Second: entries[j]})
			}
		}
	}
	return out
}

// Resolve validates raw and returns the first entry, in load order, whose
// Number is a prefix of the code's leading segment.
func (c *Catalog) Resolve(raw string) (Entry, bool) {
	prefix, ok := Prefix(raw)
	if !ok {
		return Entry{}, false
	}
	return c.Lookup(prefix)
}

// Lookup applies the first-match prefix rule to an already extracted prefix.
func (c *Catalog) Lookup(prefix string) (Entry, bool) {
	for _, e := range c.entries {
		if strings.HasPrefix(prefix, e.Number) {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the entries in load order.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Len returns the number of usable entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Dropped returns how many entries were rejected at load.
func (c *Catalog) Dropped() int { return c.dropped }

// Ambiguities returns entry pairs shadowed by the first-match rule.
func (c *Catalog) Ambiguities() []Ambiguity {
	return append([]Ambiguity(nil), c.ambiguities...)
}
