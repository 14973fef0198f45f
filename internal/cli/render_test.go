package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/dreamer/internal/client"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/models"
)

func structuredResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		Raw:        "### Symbols\nWater: renewal\n### Emotional Tone\ncalm",
		Structured: true,
		Sections: models.Sections{
			{Name: "Symbols", Lines: []string{"Water: renewal"}},
			{Name: "Emotional Tone", Lines: []string{"calm"}},
		},
		Entry: &models.JournalEntry{ID: "e1", Timestamp: "2026-01-02 03:04"},
	}
}

func TestListItem(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Water: renewal", "- Water: renewal"},
		{"- already a bullet", "- already a bullet"},
		{"* star bullet", "* star bullet"},
		{"2. numbered", "2. numbered"},
		{"2.5 is not a list", "- 2.5 is not a list"},
		{"  padded  ", "- padded"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, listItem(tt.line))
		})
	}
}

func TestAnalysisMarkdown(t *testing.T) {
	md := analysisMarkdown(structuredResult())
	assert.Equal(t, "### Symbols\n\n- Water: renewal\n\n### Emotional Tone\n\n- calm\n\n", md)

	raw := &models.AnalysisResult{Raw: "no headings here"}
	assert.Equal(t, "no headings here", analysisMarkdown(raw))
}

func TestWriteAnalysis(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeAnalysis(&buf, structuredResult(), outputOptions{width: 80}, defaultTheme))
		out := buf.String()
		assert.Contains(t, out, "Symbols")
		assert.Contains(t, out, "Water: renewal")
		assert.Contains(t, out, "Emotional Tone")
		assert.Contains(t, out, savedMessage)
	})

	t.Run("raw", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeAnalysis(&buf, structuredResult(), outputOptions{raw: true}, defaultTheme))
		assert.Equal(t, structuredResult().Raw+"\n", buf.String())
	})

	t.Run("unstructured", func(t *testing.T) {
		var buf bytes.Buffer
		result := &models.AnalysisResult{Raw: "Just prose."}
		require.NoError(t, writeAnalysis(&buf, result, outputOptions{width: 80}, defaultTheme))
		assert.Contains(t, buf.String(), mismatchWarning)
		assert.Contains(t, buf.String(), "Just prose.")
		assert.NotContains(t, buf.String(), savedMessage)
	})
}

func TestLabelCountLines(t *testing.T) {
	lines := labelCountLines([]models.LabelCount{{Label: "Water", Count: 2}, {Label: "Key", Count: 1}})
	assert.Equal(t, []string{"- Water (2x)", "- Key (1x)"}, lines)
}

func TestThemeTrackingView(t *testing.T) {
	empty := themeTrackingView(nil, 0, defaultTheme)
	assert.Contains(t, empty, themeTrackingTitle)
	assert.Contains(t, empty, emptyJournalMessage)

	stats := &models.JournalStats{
		Symbols:  []models.LabelCount{{Label: "Water", Count: 2}},
		Emotions: []models.LabelCount{{Label: "calm", Count: 1}},
	}
	view := themeTrackingView(stats, 2, defaultTheme)
	assert.Contains(t, view, symbolsTitle)
	assert.Contains(t, view, "- Water (2x)")
	assert.Contains(t, view, emotionsTitle)
	assert.Contains(t, view, "- calm (1x)")
	assert.NotContains(t, view, emptyJournalMessage)
}

func TestEntryListView(t *testing.T) {
	entries := []models.JournalEntry{
		{ID: "b", Timestamp: "2026-01-02 10:00", CreatedAt: time.Now()},
		{ID: "a", Timestamp: "2026-01-01 09:00", CreatedAt: time.Now()},
	}

	view := entryListView(entries, 1, true, defaultTheme)
	assert.Contains(t, view, "Entry 1 - 2026-01-02 10:00")
	assert.Contains(t, view, "> Entry 2 - 2026-01-01 09:00")

	assert.Contains(t, entryListView(nil, 0, false, defaultTheme), emptyJournalMessage)
}

func TestHelpView(t *testing.T) {
	view := helpView(defaultTheme)
	assert.Contains(t, view, helpTitle)
	for _, step := range helpSteps {
		assert.Contains(t, view, step)
	}
}

func TestDescribeError(t *testing.T) {
	remote := &client.RemoteError{Kind: models.ErrorKindTransport, Message: "Error analyzing dream: boom"}
	assert.Equal(t, "Error analyzing dream: boom", describeError(remote))

	local := &llm.AnalysisError{Model: "m", Err: errors.New("timeout")}
	assert.True(t, strings.HasPrefix(describeError(local), "Error analyzing dream: "))
}

func TestReadDream(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "args are joined", args: []string{"I", "was", "flying"}, want: "I was flying"},
		{name: "no args reads stdin", stdin: "a dream\nover lines\n", want: "a dream\nover lines\n"},
		{name: "dash reads stdin", stdin: "piped", args: []string{"-"}, want: "piped"},
		{name: "dash among args is text", args: []string{"-", "x"}, want: "- x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDream(strings.NewReader(tt.stdin), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
