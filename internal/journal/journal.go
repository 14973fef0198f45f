// Package journal keeps the session-scoped dream journal and its theme
// statistics.
package journal

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/dreamer/internal/models"
	"github.com/raphaelgruber/dreamer/internal/parser"
)

// Default list sizes used by the journal views.
const (
	DefaultTopSymbols  = 5
	DefaultTopEmotions = 3
)

// Journal is an append-only, in-memory list of entries owned by one session.
// Entries are never edited or removed; the journal lives as long as its
// session. All methods are safe for concurrent use.
type Journal struct {
	mu      sync.RWMutex
	entries []models.JournalEntry
	now     func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the clock used to timestamp entries.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// New creates an empty journal.
func New(opts ...Option) *Journal {
	j := &Journal{now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record appends a new entry for dream and returns it.
func (j *Journal) Record(dream string, sections models.Sections) models.JournalEntry {
	created := j.now()
	entry := models.JournalEntry{
		ID:        uuid.New().String(),
		Timestamp: created.Format(models.TimestampLayout),
		CreatedAt: created,
		Dream:     dream,
		Sections:  sections.Clone(),
	}

	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()

	return entry.Clone()
}

// Len returns the number of entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Entries returns all entries oldest first.
func (j *Journal) Entries() []models.JournalEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]models.JournalEntry, len(j.entries))
	for i, e := range j.entries {
		out[i] = e.Clone()
	}
	return out
}

// Recent returns all entries newest first.
func (j *Journal) Recent() []models.JournalEntry {
	entries := j.Entries()
	slices.Reverse(entries)
	return entries
}

// Get returns the entry with the given ID.
func (j *Journal) Get(id string) (models.JournalEntry, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	for _, e := range j.entries {
		if e.ID == id {
			return e.Clone(), true
		}
	}
	return models.JournalEntry{}, false
}

// TopLabels counts labels of the named section across all entries and returns
// the n most frequent. Equal counts keep the order in which labels were first
// seen.
func (j *Journal) TopLabels(section string, n int) []models.LabelCount {
	if n <= 0 {
		return nil
	}

	j.mu.RLock()
	var labels []string
	for _, e := range j.entries {
		if lines, ok := e.Sections.Get(section); ok {
			labels = append(labels, parser.Labels(lines)...)
		}
	}
	j.mu.RUnlock()

	return mostCommon(labels, n)
}

// TopSymbols returns the n most common labels of the Symbols section.
func (j *Journal) TopSymbols(n int) []models.LabelCount {
	return j.TopLabels(models.SectionSymbols, n)
}

// TopEmotions returns the n most common labels of the Emotional Tone section.
func (j *Journal) TopEmotions(n int) []models.LabelCount {
	return j.TopLabels(models.SectionEmotionalTone, n)
}

// Stats returns both theme tracking lists.
func (j *Journal) Stats(symbols, emotions int) models.JournalStats {
	return models.JournalStats{
		Symbols:  j.TopSymbols(symbols),
		Emotions: j.TopEmotions(emotions),
	}
}

// EntryLabel names an entry in a newest-first listing; position is 0-based.
func EntryLabel(position int, entry models.JournalEntry) string {
	return fmt.Sprintf("Entry %d - %s", position+1, entry.Timestamp)
}

func mostCommon(labels []string, n int) []models.LabelCount {
	if len(labels) == 0 {
		return nil
	}

	index := make(map[string]int)
	var counts []models.LabelCount
	for _, label := range labels {
		i, ok := index[label]
		if !ok {
			i = len(counts)
			index[label] = i
			counts = append(counts, models.LabelCount{Label: label})
		}
		counts[i].Count++
	}

	slices.SortStableFunc(counts, func(a, b models.LabelCount) int {
		return b.Count - a.Count
	})

	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
