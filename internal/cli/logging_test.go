package cli

import (
	"bytes"
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/dreamer/internal/llm"
)

// replyModel answers every prompt with text.
type replyModel struct {
	text string
}

func (r replyModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: r.text}}}, nil
}

func (r replyModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, r, prompt, options...)
}

func TestSessionLogsStayOffTerminal(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "dreamer.log")
	t.Setenv("DREAMER_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("DREAMER_LOG_FILE", logFile)
	t.Setenv("DREAMER_LOG_LEVEL", "info")

	prevDefault, prevOut := slog.Default(), log.Writer()
	prevLogger, prevClose := logger, closeLog
	t.Cleanup(func() {
		_ = closeLog()
		slog.SetDefault(prevDefault)
		log.SetOutput(prevOut)
		logger, closeLog, collector = prevLogger, prevClose, nil
	})

	var terminal bytes.Buffer
	log.SetOutput(&terminal)

	require.NoError(t, rootCmd.PersistentPreRunE(sessionCmd, nil))

	model := llm.FromLLM(replyModel{text: "### Symbols\nWater"}, "m", nil)
	m := analyze(t, newSessionModel(newLocalSession(model)), "a dream")
	assert.Equal(t, savedMessage, m.status)

	assert.Empty(t, terminal.String(), "nothing is written to the terminal while the TUI runs")

	written, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), "interpreting dream")
}
