package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// geminiModel adapts the Google GenAI client to llms.Model.
type geminiModel struct {
	client *genai.Client
	model  string
}

func newGeminiModel(ctx context.Context, apiKey, model string) (*geminiModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key required", ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiModel{client: client, model: model}, nil
}

// GenerateContent implements llms.Model.
func (g *geminiModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	system, contents := toGenAIContents(messages)
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return &llms.ContentResponse{}, nil
	}

	info := map[string]any{}
	if u := resp.UsageMetadata; u != nil {
		info["PromptTokens"] = int(u.PromptTokenCount)
		info["CompletionTokens"] = int(u.CandidatesTokenCount)
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        resp.Text(),
			GenerationInfo: info,
		}},
	}, nil
}

// Call implements llms.Model.
func (g *geminiModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

// toGenAIContents splits langchaingo messages into a system instruction and
// the conversation turns. Non-text parts are ignored.
func toGenAIContents(messages []llms.MessageContent) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content

	for _, msg := range messages {
		var texts []string
		for _, part := range msg.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				texts = append(texts, tc.Text)
			}
		}
		text := strings.Join(texts, "\n")

		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			system = append(system, text)
		case llms.ChatMessageTypeAI:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n"), contents
}
