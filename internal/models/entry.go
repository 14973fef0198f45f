// Package models defines data structures for the dream journal.
package models

import (
	"slices"
	"time"
)

// Section names the journal statistics are computed over.
const (
	SectionSymbols       = "Symbols"
	SectionEmotionalTone = "Emotional Tone"
)

// TimestampLayout is the local "date and minute" format of JournalEntry.Timestamp.
const TimestampLayout = "2006-01-02 15:04"

// Section is one heading of an interpretation and its content lines.
type Section struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// Sections is an ordered mapping from section name to lines. Order is the
// order in which headings first appeared in the reply.
type Sections []Section

// Get returns the lines of the named section.
func (s Sections) Get(name string) ([]string, bool) {
	for _, sec := range s {
		if sec.Name == name {
			return sec.Lines, true
		}
	}
	return nil, false
}

// Names returns section names in order.
func (s Sections) Names() []string {
	names := make([]string, len(s))
	for i, sec := range s {
		names[i] = sec.Name
	}
	return names
}

// Clone returns a deep copy.
func (s Sections) Clone() Sections {
	if s == nil {
		return nil
	}
	out := make(Sections, len(s))
	for i, sec := range s {
		out[i] = Section{Name: sec.Name, Lines: slices.Clone(sec.Lines)}
	}
	return out
}

// JournalEntry pairs a dream with its parsed interpretation.
type JournalEntry struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
	Dream     string    `json:"dream"`
	Sections  Sections  `json:"sections"`
}

// Clone returns a deep copy of the entry.
func (e JournalEntry) Clone() JournalEntry {
	e.Sections = e.Sections.Clone()
	return e
}

// LabelCount is a label with its number of occurrences across the journal.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// JournalStats holds the theme tracking view of a journal.
type JournalStats struct {
	Symbols  []LabelCount `json:"symbols"`
	Emotions []LabelCount `json:"emotions"`
}
