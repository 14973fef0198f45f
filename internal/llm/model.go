// Package llm provides the dream interpretation client on top of langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/dreamer/internal/config"
	"github.com/raphaelgruber/dreamer/internal/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	metrics   *metrics.Collector
}

// NewModel creates an LLM model based on configuration. A missing credential
// fails here, before any request is made.
func NewModel(ctx context.Context, cfg config.Config, mc *metrics.Collector) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderGroq:
		baseURL := cfg.LLMBaseURL
		if baseURL == "" {
			baseURL = config.GroqBaseURL
		}
		model, err = openai.New(
			openai.WithToken(cfg.GroqAPIKey),
			openai.WithModel(cfg.LLMModel),
			openai.WithBaseURL(baseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create groq model: %w", err)
		}

	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		opts := []anthropic.Option{
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		}
		if cfg.LLMBaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.LLMBaseURL))
		}
		model, err = anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("%w: load aws config: %w", ErrConfiguration, awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	case config.ProviderGemini:
		model, err = newGeminiModel(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", ErrConfiguration, cfg.LLMProvider)
	}

	return FromLLM(model, cfg.LLMModel, mc), nil
}

// FromLLM wraps an already constructed langchaingo model.
func FromLLM(model llms.Model, modelName string, mc *metrics.Collector) *Model {
	return &Model{
		llm:       model,
		modelName: modelName,
		metrics:   mc,
	}
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, options ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages, options...)
	duration := time.Since(start)

	if err != nil {
		m.metrics.RecordError(metrics.OpInterpret)
		slog.Warn("generation failed", "model", m.modelName, "duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("generate with system: %w", err)
	}

	if response == nil || len(response.Choices) == 0 {
		m.metrics.RecordError(metrics.OpInterpret)
		return "", ErrNoChoices
	}

	choice := response.Choices[0]
	inputTokens, outputTokens := tokenUsage(choice.GenerationInfo)
	m.metrics.RecordLLMUsage(metrics.OpInterpret, duration, inputTokens, outputTokens)

	slog.Debug("generation complete",
		"model", m.modelName,
		"duration_ms", duration.Milliseconds(),
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
	)
	return choice.Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Provider-specific GenerationInfo keys holding token counts.
var (
	inputTokenKeys  = []string{"PromptTokens", "InputTokens", "input_tokens"}
	outputTokenKeys = []string{"CompletionTokens", "OutputTokens", "output_tokens"}
)

// tokenUsage extracts token counts from a choice's generation info.
func tokenUsage(info map[string]any) (input, output int64) {
	return firstCount(info, inputTokenKeys), firstCount(info, outputTokenKeys)
}

func firstCount(info map[string]any, keys []string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
