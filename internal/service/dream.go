// Package service ties the interpreter, parser and journal together.
package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/dreamer/internal/journal"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/metrics"
	"github.com/raphaelgruber/dreamer/internal/models"
	"github.com/raphaelgruber/dreamer/internal/parser"
)

// Interpreter turns a dream description into a raw model reply.
type Interpreter interface {
	Interpret(ctx context.Context, dreamText string) (string, error)
}

// Analysis is the outcome of one successful interpretation call.
type Analysis struct {
	Raw      string
	Sections models.Sections
	// Entry is the journal entry recorded for this analysis, nil when the
	// reply had no sections.
	Entry *models.JournalEntry
}

// Structured reports whether the reply could be split into sections. When it
// could not, the raw text should be shown instead.
func (a *Analysis) Structured() bool {
	return len(a.Sections) > 0
}

// Result converts the analysis to its wire form.
func (a *Analysis) Result() *models.AnalysisResult {
	return &models.AnalysisResult{
		Raw:        a.Raw,
		Structured: a.Structured(),
		Sections:   a.Sections,
		Entry:      a.Entry,
	}
}

// DreamService analyzes dreams for one session and records them in that
// session's journal.
type DreamService struct {
	interpreter Interpreter
	journal     *journal.Journal
	metrics     *metrics.Collector
	logger      *slog.Logger

	// mu serializes analyses so that one journal sees one analysis at a time.
	mu sync.Mutex
}

// NewDreamService creates a service recording into j. mc may be nil.
func NewDreamService(interpreter Interpreter, j *journal.Journal, mc *metrics.Collector, logger *slog.Logger) *DreamService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DreamService{
		interpreter: interpreter,
		journal:     j,
		metrics:     mc,
		logger:      logger,
	}
}

// Analyze interprets dream, parses the reply and, if it has sections, records
// a journal entry with the dream text as given. Interpreter failures are
// returned unchanged and leave the journal untouched. Blank input returns
// llm.ErrEmptyDream.
func (s *DreamService) Analyze(ctx context.Context, dream string) (*Analysis, error) {
	if strings.TrimSpace(dream) == "" {
		return nil, llm.ErrEmptyDream
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.interpreter.Interpret(ctx, dream)
	if err != nil {
		s.logger.Warn("dream analysis failed", "error", err)
		return nil, err
	}

	start := time.Now()
	sections := parser.ParseSections(raw)
	s.metrics.RecordTiming(metrics.OpParse, time.Since(start))

	analysis := &Analysis{Raw: raw, Sections: sections}
	if !analysis.Structured() {
		s.logger.Warn("reply has no sections, showing raw text", "reply_len", len(raw))
		return analysis, nil
	}

	entry := s.journal.Record(dream, sections)
	s.metrics.EntryRecorded()
	analysis.Entry = &entry

	s.logger.Info("dream recorded",
		"entry_id", entry.ID,
		"sections", len(sections),
		"journal_len", s.journal.Len(),
	)
	return analysis, nil
}

// Stats returns the theme tracking view of the journal.
func (s *DreamService) Stats(symbols, emotions int) models.JournalStats {
	return s.journal.Stats(symbols, emotions)
}

// Journal returns the journal the service records into.
func (s *DreamService) Journal() *journal.Journal {
	return s.journal
}
