package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/dreamer/internal/metrics"
	"github.com/tmc/langchaingo/llms"
)

// Temperature is the sampling temperature of every interpretation.
const Temperature = 0.7

// SystemPrompt instructs the model to answer in "### " sections.
const SystemPrompt = `You are a dream interpretation expert combining knowledge from psychology,
mythology, and symbolic analysis. Analyze the following dream by:
1. Identifying key symbols and their potential meanings
2. Emotional tone analysis
3. Psychological interpretation
4. Mythological/cultural connections
5. Possible life connections
Structure your response with clear headings in markdown using ### prefix for section titles.
Use exactly these section titles: Symbols, Emotional Tone, Psychological Interpretation,
Mythological Connections, Life Connections.
Under Symbols and Emotional Tone, write one item per line as "Name: explanation".`

// Interpret sends dreamText to the model and returns the raw reply.
//
// Every failure, including a panic inside the provider, is returned as an
// *AnalysisError matching ErrTransport. Blank input returns ErrEmptyDream
// without contacting the model.
func (m *Model) Interpret(ctx context.Context, dreamText string) (reply string, err error) {
	if strings.TrimSpace(dreamText) == "" {
		return "", ErrEmptyDream
	}

	defer func() {
		if r := recover(); r != nil {
			m.metrics.RecordError(metrics.OpInterpret)
			slog.Error("provider panicked", "model", m.modelName, "panic", r)
			reply, err = "", &AnalysisError{Model: m.modelName, Err: fmt.Errorf("provider panic: %v", r)}
		}
	}()

	slog.Info("interpreting dream", "model", m.modelName, "dream_len", len(dreamText))

	reply, err = m.GenerateWithSystem(ctx, SystemPrompt, dreamText, llms.WithTemperature(Temperature))
	if err != nil {
		return "", &AnalysisError{Model: m.modelName, Err: wrapFatalError(err)}
	}
	return reply, nil
}
