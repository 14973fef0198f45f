package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"

	"github.com/raphaelgruber/dreamer/internal/metrics"
)

func TestToGenAIContents(t *testing.T) {
	system, contents := toGenAIContents([]llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "be an expert"),
		llms.TextParts(llms.ChatMessageTypeHuman, "I dreamt of a", "tower"),
		llms.TextParts(llms.ChatMessageTypeAI, "### Symbols"),
	})

	assert.Equal(t, "be an expert", system)
	require.Len(t, contents, 2)

	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, "I dreamt of a\ntower", contents[0].Parts[0].Text)

	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "### Symbols", contents[1].Parts[0].Text)
}

func TestToGenAIContentsSkipsNonText(t *testing.T) {
	system, contents := toGenAIContents([]llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.ImageURLContent{URL: "https://example.com/a.png"}, llms.TextContent{Text: "dream"}},
	}})

	assert.Empty(t, system)
	require.Len(t, contents, 1)
	assert.Equal(t, "dream", contents[0].Parts[0].Text)
}

// geminiServer serves generateContent calls with reply and hands each decoded
// request body to inspect.
func geminiServer(t *testing.T, reply string, inspect func(body map[string]any)) *geminiModel {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		assert.NoError(t, json.Unmarshal(raw, &body))
		if inspect != nil {
			inspect(body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	require.NoError(t, err)
	return &geminiModel{client: client, model: "gemini-test"}
}

func TestGeminiGenerateContent(t *testing.T) {
	var body map[string]any
	g := geminiServer(t, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "### Symbols\nWater"}]}}],
		"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 5}
	}`, func(b map[string]any) { body = b })

	mc := metrics.NewCollector()
	reply, err := FromLLM(g, "gemini-test", mc).GenerateWithSystem(context.Background(),
		"be an expert", "I dreamt of water", llms.WithTemperature(0.7))
	require.NoError(t, err)
	assert.Equal(t, "### Symbols\nWater", reply)

	require.NotNil(t, body)
	genCfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "generationConfig present")
	assert.InDelta(t, 0.7, genCfg["temperature"], 0.001)

	sys, ok := body["systemInstruction"].(map[string]any)
	require.True(t, ok, "systemInstruction present")
	parts := sys["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "be an expert", parts[0].(map[string]any)["text"])

	contents := body["contents"].([]any)
	require.Len(t, contents, 1, "the system prompt is not sent as a turn")

	snap := mc.Snapshot()
	require.NotNil(t, snap.Interpret)
	assert.Equal(t, int64(1), snap.Interpret.Count)
	require.NotNil(t, snap.Interpret.TotalInputTokens)
	assert.Equal(t, int64(3), *snap.Interpret.TotalInputTokens)
	assert.Equal(t, int64(5), *snap.Interpret.TotalOutputTokens)
}

func TestGeminiGenerateContentNoCandidates(t *testing.T) {
	g := geminiServer(t, `{"candidates": []}`, func(b map[string]any) {
		genCfg, _ := b["generationConfig"].(map[string]any)
		assert.NotContains(t, genCfg, "temperature", "temperature is left to the model default")
	})

	_, err := FromLLM(g, "gemini-test", nil).GenerateWithSystem(context.Background(), "sys", "dream")
	assert.ErrorIs(t, err, ErrNoChoices)
}
