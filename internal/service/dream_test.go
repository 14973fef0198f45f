package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/raphaelgruber/dreamer/internal/journal"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/metrics"
	"github.com/raphaelgruber/dreamer/internal/models"
	"github.com/raphaelgruber/dreamer/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInterpreter struct {
	reply string
	err   error
	calls []string
}

func (s *stubInterpreter) Interpret(_ context.Context, dream string) (string, error) {
	s.calls = append(s.calls, dream)
	return s.reply, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyzeRecordsStructuredReply(t *testing.T) {
	interp := &stubInterpreter{reply: "Here is your analysis.\n### Symbols\nWater: renewal\n### Emotional Tone\ncalm\n"}
	j := journal.New()
	mc := metrics.NewCollector()
	svc := service.NewDreamService(interp, j, mc, quietLogger())

	analysis, err := svc.Analyze(context.Background(), "I was swimming in a dark lake\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"I was swimming in a dark lake\n"}, interp.calls)
	assert.True(t, analysis.Structured())
	assert.Equal(t, models.Sections{
		{Name: "Symbols", Lines: []string{"Water: renewal"}},
		{Name: "Emotional Tone", Lines: []string{"calm"}},
	}, analysis.Sections)

	require.NotNil(t, analysis.Entry)
	assert.Equal(t, "I was swimming in a dark lake\n", analysis.Entry.Dream, "dream text is stored verbatim")
	assert.Equal(t, 1, j.Len())
	assert.Equal(t, int64(1), mc.Snapshot().EntriesRecorded)

	stats := svc.Stats(journal.DefaultTopSymbols, journal.DefaultTopEmotions)
	assert.Equal(t, []models.LabelCount{{Label: "Water", Count: 1}}, stats.Symbols)
	assert.Equal(t, []models.LabelCount{{Label: "calm", Count: 1}}, stats.Emotions)

	result := analysis.Result()
	assert.True(t, result.Structured)
	assert.Equal(t, analysis.Raw, result.Raw)
	assert.Equal(t, analysis.Entry, result.Entry)
}

func TestAnalyzeUnstructuredReplyIsNotRecorded(t *testing.T) {
	interp := &stubInterpreter{reply: "Your dream is about change."}
	j := journal.New()
	svc := service.NewDreamService(interp, j, nil, quietLogger())

	analysis, err := svc.Analyze(context.Background(), "a dream")
	require.NoError(t, err)

	assert.False(t, analysis.Structured())
	assert.Equal(t, "Your dream is about change.", analysis.Raw)
	assert.Nil(t, analysis.Entry)
	assert.Zero(t, j.Len())
}

func TestAnalyzeFailureLeavesJournalUntouched(t *testing.T) {
	cause := &llm.AnalysisError{Model: "m", Err: errors.New("connection refused")}
	interp := &stubInterpreter{err: cause}
	j := journal.New()
	j.Record("earlier dream", models.Sections{{Name: "Symbols", Lines: []string{"Key"}}})
	svc := service.NewDreamService(interp, j, nil, quietLogger())

	analysis, err := svc.Analyze(context.Background(), "a dream")
	assert.Nil(t, analysis)
	assert.ErrorIs(t, err, llm.ErrTransport)
	assert.Equal(t, 1, j.Len())

	// The session stays usable after a failure.
	interp.err = nil
	interp.reply = "### Symbols\nKey: access"
	_, err = svc.Analyze(context.Background(), "another dream")
	require.NoError(t, err)
	assert.Equal(t, []models.LabelCount{{Label: "Key", Count: 2}}, svc.Stats(5, 3).Symbols)
}

func TestAnalyzeEmptyDream(t *testing.T) {
	interp := &stubInterpreter{}
	svc := service.NewDreamService(interp, journal.New(), nil, nil)

	_, err := svc.Analyze(context.Background(), " \n ")
	assert.ErrorIs(t, err, llm.ErrEmptyDream)
	assert.Empty(t, interp.calls)
}

func TestJournalAccessor(t *testing.T) {
	j := journal.New()
	svc := service.NewDreamService(&stubInterpreter{}, j, nil, nil)
	assert.Same(t, j, svc.Journal())
}
