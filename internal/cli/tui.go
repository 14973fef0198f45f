package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dreamer/internal/journal"
	"github.com/raphaelgruber/dreamer/internal/models"
)

const (
	analysisTimeout = 2 * time.Minute
	journalTimeout  = 10 * time.Second

	sidebarWidth  = 38
	minMainWidth  = 40
	defaultHeight = 8
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start an interactive dream journal session",
	Long: `Start an interactive session. Write a dream, press ctrl+s to interpret
it, and browse the journal of this session in the sidebar. The journal is
kept until the session ends.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func runSession(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("failed to close session", "error", err)
		}
	}()

	p := tea.NewProgram(newSessionModel(sess), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("session UI error: %w", err)
	}
	if m, ok := finalModel.(sessionModel); ok {
		logger.Info("session ended", "entries", len(m.entries))
	}
	return nil
}

// focusArea is the pane that receives navigation keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusResult
	focusEntries
)

type statusKind int

const (
	statusNone statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// analysisMsg carries the outcome of an interpretation.
type analysisMsg struct {
	result *models.AnalysisResult
	err    error
}

// journalMsg carries a fresh view of the session journal.
type journalMsg struct {
	entries []models.JournalEntry
	stats   *models.JournalStats
	err     error
}

// sessionModel is the bubbletea model for an interactive session.
type sessionModel struct {
	session dreamSession
	theme   Theme
	input   textarea.Model
	spinner spinner.Model
	focus   focusArea
	busy    bool

	status     string
	statusKind statusKind

	result        *models.AnalysisResult
	collapsed     map[string]bool
	sectionCursor int

	entries     []models.JournalEntry
	stats       *models.JournalStats
	entryCursor int
	selected    *models.JournalEntry
	// selectedPos is the position of selected in entries.
	selectedPos int

	width, height int
}

func newSessionModel(sess dreamSession) sessionModel {
	ta := textarea.New()
	ta.Placeholder = "Describe your dream here..."
	ta.ShowLineNumbers = false
	ta.SetWidth(minMainWidth + 20)
	ta.SetHeight(defaultHeight)
	ta.Focus()

	return sessionModel{
		session:   sess,
		theme:     defaultTheme,
		input:     ta,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		collapsed: make(map[string]bool),
		width:     minMainWidth + sidebarWidth + 24,
	}
}

// Init loads the journal.
func (m sessionModel) Init() tea.Cmd {
	return m.loadJournal()
}

// Update handles messages and returns the updated model.
func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(m.mainWidth() - 4)
		return m, nil

	case tea.KeyPressMsg:
		if next, cmd, handled := m.handleKey(msg.String()); handled {
			return next, cmd
		}
		if m.focus != focusInput || m.busy {
			return m, nil
		}

	case analysisMsg:
		return m.handleAnalysis(msg)

	case journalMsg:
		return m.handleJournal(msg), nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey applies session-level key bindings. Keys it does not handle go to
// the text input.
func (m sessionModel) handleKey(key string) (sessionModel, tea.Cmd, bool) {
	switch key {
	case "ctrl+c":
		return m, tea.Quit, true
	case "ctrl+s":
		next, cmd := m.submit()
		return next, cmd, true
	case "tab":
		next, cmd := m.cycleFocus()
		return next, cmd, true
	case "esc":
		m.selected = nil
		m.focus = focusInput
		return m, m.input.Focus(), true
	}

	switch m.focus {
	case focusResult:
		return m.handleResultKey(key), nil, true
	case focusEntries:
		return m.handleEntriesKey(key), nil, true
	}
	return m, nil, false
}

func (m sessionModel) handleResultKey(key string) sessionModel {
	if m.result == nil || len(m.result.Sections) == 0 {
		return m
	}
	switch key {
	case "up", "k":
		m.sectionCursor = max(m.sectionCursor-1, 0)
	case "down", "j":
		m.sectionCursor = min(m.sectionCursor+1, len(m.result.Sections)-1)
	case "enter", "space":
		name := m.result.Sections[m.sectionCursor].Name
		m.collapsed[name] = !m.collapsed[name]
	}
	return m
}

func (m sessionModel) handleEntriesKey(key string) sessionModel {
	if len(m.entries) == 0 {
		return m
	}
	switch key {
	case "up", "k":
		m.entryCursor = max(m.entryCursor-1, 0)
	case "down", "j":
		m.entryCursor = min(m.entryCursor+1, len(m.entries)-1)
	case "enter", "space":
		entry := m.entries[m.entryCursor]
		m.selected = &entry
		m.selectedPos = m.entryCursor
	}
	return m
}

// cycleFocus moves focus input -> result -> entries, skipping empty panes.
func (m sessionModel) cycleFocus() (sessionModel, tea.Cmd) {
	order := []focusArea{focusInput, focusResult, focusEntries}
	for step := 1; step <= len(order); step++ {
		next := order[(int(m.focus)+step)%len(order)]
		if next == focusResult && (m.result == nil || !m.result.Structured) {
			continue
		}
		if next == focusEntries && len(m.entries) == 0 {
			continue
		}
		m.focus = next
		break
	}

	if m.focus == focusInput {
		return m, m.input.Focus()
	}
	m.input.Blur()
	return m, nil
}

func (m sessionModel) submit() (sessionModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	dream := m.input.Value()
	if strings.TrimSpace(dream) == "" {
		m.status = "Please describe your dream first."
		m.statusKind = statusWarning
		return m, nil
	}

	m.busy = true
	m.status = ""
	m.statusKind = statusNone
	m.selected = nil
	return m, tea.Batch(m.spinner.Tick, m.interpret(dream))
}

func (m sessionModel) handleAnalysis(msg analysisMsg) (sessionModel, tea.Cmd) {
	m.busy = false

	if msg.err != nil {
		// The dream stays in the input so it can be retried.
		m.status = describeError(msg.err)
		m.statusKind = statusError
		return m, nil
	}

	m.result = msg.result
	m.collapsed = make(map[string]bool)
	m.sectionCursor = 0

	switch {
	case !msg.result.Structured:
		m.status = mismatchWarning
		m.statusKind = statusWarning
	case msg.result.Entry != nil:
		m.status = savedMessage
		m.statusKind = statusSuccess
		m.input.Reset()
	}
	return m, m.loadJournal()
}

func (m sessionModel) handleJournal(msg journalMsg) sessionModel {
	if msg.err != nil {
		m.status = describeError(msg.err)
		m.statusKind = statusError
		return m
	}
	m.entries = msg.entries
	m.stats = msg.stats
	m.entryCursor = min(m.entryCursor, max(len(m.entries)-1, 0))
	if m.selected != nil {
		for i, e := range m.entries {
			if e.ID == m.selected.ID {
				m.selectedPos = i
				break
			}
		}
	}
	return m
}

// interpret runs the analysis off the UI goroutine.
func (m sessionModel) interpret(dream string) tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
		defer cancel()

		result, err := sess.Interpret(ctx, dream)
		return analysisMsg{result: result, err: err}
	}
}

func (m sessionModel) loadJournal() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()

		entries, err := sess.Journal(ctx)
		if err != nil {
			return journalMsg{err: err}
		}
		stats, err := sess.Stats(ctx, journal.DefaultTopSymbols, journal.DefaultTopEmotions)
		return journalMsg{entries: entries, stats: stats, err: err}
	}
}

// View renders the session.
func (m sessionModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m sessionModel) mainWidth() int {
	return max(m.width-sidebarWidth-2, minMainWidth)
}

func (m sessionModel) render() string {
	mainWidth := m.mainWidth()

	var main strings.Builder
	main.WriteString(m.theme.titleStyle().Render("Dream Interpreter"))
	main.WriteByte('\n')
	main.WriteString(m.theme.hintStyle().Render("Describe your dream and receive an interpretation of its symbols and emotions."))
	main.WriteString("\n\n")
	main.WriteString(m.input.View())
	main.WriteString("\n\n")

	if m.busy {
		main.WriteString(m.spinner.View() + " Analyzing your dream...")
		main.WriteString("\n\n")
	} else if line := m.statusLine(); line != "" {
		main.WriteString(line)
		main.WriteString("\n\n")
	}

	switch {
	case m.selected != nil:
		main.WriteString(m.entryView(*m.selected))
	case m.result != nil:
		main.WriteString(m.resultView())
	}

	left := lipgloss.NewStyle().Width(mainWidth).Render(main.String())

	panel := m.theme.panelStyle().Width(sidebarWidth - 2)
	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		panel.Render(themeTrackingView(m.stats, len(m.entries), m.theme)),
		panel.Render(entryListView(m.entries, m.entryCursor, m.focus == focusEntries, m.theme)),
		panel.Render(helpView(m.theme)),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", sidebar)
}

func (m sessionModel) statusLine() string {
	switch m.statusKind {
	case statusSuccess:
		return m.theme.successStyle().Render(m.status)
	case statusWarning:
		return m.theme.warningStyle().Render(m.status)
	case statusError:
		return m.theme.errorStyle().Render(m.status)
	default:
		return m.status
	}
}

func (m sessionModel) resultView() string {
	if !m.result.Structured {
		return m.result.Raw
	}

	var b strings.Builder
	for i, section := range m.result.Sections {
		collapsed := m.collapsed[section.Name]
		marker := "▾"
		if collapsed {
			marker = "▸"
		}
		heading := marker + " " + section.Name
		if m.focus == focusResult && i == m.sectionCursor {
			b.WriteString(m.theme.selectedStyle().Render(heading))
		} else {
			b.WriteString(m.theme.headingStyle().Render(heading))
		}
		b.WriteByte('\n')
		if !collapsed {
			writeSectionLines(&b, section)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m sessionModel) entryView(entry models.JournalEntry) string {
	var b strings.Builder
	b.WriteString(m.theme.titleStyle().Render(journal.EntryLabel(m.selectedPos, entry)))
	b.WriteString("\n\n")
	b.WriteString(m.theme.headingStyle().Render("Dream"))
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(entry.Dream))
	b.WriteString("\n\n")
	for _, section := range entry.Sections {
		b.WriteString(m.theme.headingStyle().Render(section.Name))
		b.WriteByte('\n')
		writeSectionLines(&b, section)
		b.WriteByte('\n')
	}
	b.WriteString(m.theme.hintStyle().Render("esc: back"))
	return b.String()
}

func writeSectionLines(b *strings.Builder, section models.Section) {
	for _, line := range section.Lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
