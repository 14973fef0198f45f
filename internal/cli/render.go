package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/dreamer/internal/client"
	"github.com/raphaelgruber/dreamer/internal/journal"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/models"
)

const (
	savedMessage        = "Analysis saved to your dream journal!"
	emptyJournalMessage = "No entries yet - interpret some dreams to build your journal!"
	mismatchWarning     = "The response did not follow the expected format. Showing the raw analysis instead."

	themeTrackingTitle = "Theme Tracking"
	symbolsTitle       = "Most Common Symbols"
	emotionsTitle      = "Frequent Emotions"
	pastEntriesTitle   = "Past Entries"
	helpTitle          = "How to Use"
)

var helpSteps = []string{
	"Describe your dream in as much detail as you remember.",
	"Press ctrl+s to get an interpretation.",
	"Review the symbols, emotions and themes in the analysis.",
	"Browse past entries to spot recurring themes.",
}

// Theme holds the color scheme for terminal output.
type Theme struct {
	Title   lipgloss.Color
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	Border  lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Title:   lipgloss.Color("#AF87FF"), // lavender
	Accent:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Warning: lipgloss.Color("#FFAF00"), // amber
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Border:  lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Title).Bold(true)
}

func (t Theme) headingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Underline(true)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) warningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
}

// describeError renders err for the user. Remote errors already carry a
// rendered message.
func describeError(err error) string {
	var remote *client.RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	return llm.Describe(err)
}

// analysisMarkdown formats an analysis as markdown, one heading per section.
// Unstructured replies are returned as they are.
func analysisMarkdown(result *models.AnalysisResult) string {
	if !result.Structured {
		return result.Raw
	}

	var b strings.Builder
	for _, section := range result.Sections {
		fmt.Fprintf(&b, "### %s\n\n", section.Name)
		for _, line := range section.Lines {
			b.WriteString(listItem(line))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// listItem keeps lines that are already list items and bullets the rest, so
// that each line renders on its own.
func listItem(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, marker := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(trimmed, marker) {
			return trimmed
		}
	}
	if i := strings.Index(trimmed, ". "); i > 0 && isDigits(trimmed[:i]) {
		return trimmed
	}
	return "- " + trimmed
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// renderMarkdown renders md for the terminal. styled selects colors; plain
// output is used when stdout is not a terminal.
func renderMarkdown(md string, styled bool, width int) (string, error) {
	style := "notty"
	if styled {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// outputOptions controls writeAnalysis.
type outputOptions struct {
	raw    bool
	styled bool
	width  int
}

// writeAnalysis prints an interpretation result to w.
func writeAnalysis(w io.Writer, result *models.AnalysisResult, opts outputOptions, theme Theme) error {
	if opts.raw {
		_, err := fmt.Fprintln(w, result.Raw)
		return err
	}

	if !result.Structured {
		if _, err := fmt.Fprintln(w, theme.warningStyle().Render("Warning: "+mismatchWarning)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%s\n", result.Raw)
		return err
	}

	out, err := renderMarkdown(analysisMarkdown(result), opts.styled, opts.width)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, out); err != nil {
		return err
	}
	if result.Entry != nil {
		_, err = fmt.Fprintln(w, theme.successStyle().Render(savedMessage))
	}
	return err
}

// labelCountLines formats counts as "- label (Nx)".
func labelCountLines(counts []models.LabelCount) []string {
	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("- %s (%dx)", c.Label, c.Count))
	}
	return lines
}

// themeTrackingView renders the most common symbols and emotions.
func themeTrackingView(stats *models.JournalStats, entryCount int, theme Theme) string {
	var b strings.Builder
	b.WriteString(theme.titleStyle().Render(themeTrackingTitle))
	b.WriteString("\n\n")

	if entryCount == 0 || stats == nil {
		b.WriteString(theme.hintStyle().Render(emptyJournalMessage))
		return b.String()
	}

	if len(stats.Symbols) > 0 {
		b.WriteString(theme.headingStyle().Render(symbolsTitle))
		b.WriteByte('\n')
		b.WriteString(strings.Join(labelCountLines(stats.Symbols), "\n"))
		b.WriteString("\n\n")
	}
	if len(stats.Emotions) > 0 {
		b.WriteString(theme.headingStyle().Render(emotionsTitle))
		b.WriteByte('\n')
		b.WriteString(strings.Join(labelCountLines(stats.Emotions), "\n"))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// entryListView renders newest-first entries with the cursor highlighted
// when active.
func entryListView(entries []models.JournalEntry, cursor int, active bool, theme Theme) string {
	var b strings.Builder
	b.WriteString(theme.titleStyle().Render(pastEntriesTitle))
	b.WriteString("\n\n")

	if len(entries) == 0 {
		b.WriteString(theme.hintStyle().Render(emptyJournalMessage))
		return b.String()
	}

	for i, entry := range entries {
		label := journal.EntryLabel(i, entry)
		if active && i == cursor {
			b.WriteString(theme.selectedStyle().Render("> " + label))
		} else {
			b.WriteString("  " + label)
		}
		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// helpView renders the usage steps.
func helpView(theme Theme) string {
	var b strings.Builder
	b.WriteString(theme.titleStyle().Render(helpTitle))
	b.WriteString("\n\n")
	for i, step := range helpSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString(theme.hintStyle().Render("tab: switch pane  enter: open  esc: back  ctrl+c: quit"))
	return b.String()
}
