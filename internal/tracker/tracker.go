// Package tracker holds the currently displayed catalog entry and filters
// out updates that would not change it.
package tracker

import (
	"github.com/GriffinCanCode/platescan/internal/catalog"
	"github.com/GriffinCanCode/platescan/internal/syncx"
)

type state struct {
	entry catalog.Entry
	set   bool
}

// Tracker is safe for use from the capture loop and recognition goroutines.
type Tracker struct {
	current *syncx.RWGuard[state]
}

// New returns a tracker with no current entry.
func New() *Tracker {
	return &Tracker{current: syncx.NewGuard(state{})}
}

// Update replaces the current entry with e and reports true when e is
// non-nil and its Number differs from the current one. A nil e never clears
// the current entry.
func (t *Tracker) Update(e *catalog.Entry) bool {
	if e == nil {
		return false
	}
	next := *e
	return syncx.Modify(t.current, func(s *state) bool {
		if s.set && s.entry.Number == next.Number {
			return false
		}
		*s = state{entry: next, set: true}
		return true
	})
}

// Current returns the current entry, if any.
func (t *Tracker) Current() (catalog.Entry, bool) {
	s := t.current.Get()
	return s.entry, s.set
}

// Matched reports whether an entry has been confirmed.
func (t *Tracker) Matched() bool {
	return syncx.View(t.current, func(s state) bool { return s.set })
}
