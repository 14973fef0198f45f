package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider identifies the chat-completion backend.
type Provider string

// Supported providers.
const (
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
	ProviderGemini    Provider = "gemini"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// ErrMissingAPIKey is returned by Validate when the selected provider needs a
// credential and none is configured.
var ErrMissingAPIKey = errors.New("missing API key")

// defaultModels holds the model used when DREAMER_MODEL is unset.
var defaultModels = map[Provider]string{
	ProviderGroq:      "mixtral-8x7b-32768",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOllama:    "llama3.2",
	ProviderBedrock:   "anthropic.claude-3-haiku-20240307-v1:0",
	ProviderGemini:    "gemini-2.0-flash",
}

// Config holds all configuration values.
type Config struct {
	// LLM
	LLMProvider Provider `yaml:"provider"`
	LLMModel    string   `yaml:"model"`
	LLMBaseURL  string   `yaml:"base_url"`

	// Credentials
	GroqAPIKey      string `yaml:"groq_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	OllamaHost      string `yaml:"ollama_host"`
	AWSRegion       string `yaml:"aws_region"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Server
	ServerPort string `yaml:"server_port"`

	logLevelName string
}

// fileConfig mirrors Config for YAML decoding; log_level is kept as text.
type fileConfig struct {
	Config   `yaml:",inline"`
	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from defaults, the optional YAML file and the
// environment, in that order of increasing precedence.
func Load() (Config, error) {
	cfg := defaults()

	path := getEnv("DREAMER_CONFIG", defaultConfigPath())
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.mergeEnv()

	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	cfg.LogLevel = parseLogLevel(cfg.logLevelName)

	return cfg, nil
}

func defaults() Config {
	return Config{
		LLMProvider:  ProviderGroq,
		OllamaHost:   "http://localhost:11434",
		AWSRegion:    "us-east-1",
		LogFile:      filepath.Join(os.TempDir(), "dreamer.log"),
		ServerPort:   "8585",
		logLevelName: "INFO",
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dreamer", "config.yaml")
}

// mergeFile overlays non-empty values from a YAML file. A missing file is not
// an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	f := fc.Config
	setIfEmpty := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	if f.LLMProvider != "" {
		c.LLMProvider = f.LLMProvider
	}
	setIfEmpty(&c.LLMModel, f.LLMModel)
	setIfEmpty(&c.LLMBaseURL, f.LLMBaseURL)
	setIfEmpty(&c.GroqAPIKey, f.GroqAPIKey)
	setIfEmpty(&c.OpenAIAPIKey, f.OpenAIAPIKey)
	setIfEmpty(&c.AnthropicAPIKey, f.AnthropicAPIKey)
	setIfEmpty(&c.GeminiAPIKey, f.GeminiAPIKey)
	setIfEmpty(&c.OllamaHost, f.OllamaHost)
	setIfEmpty(&c.AWSRegion, f.AWSRegion)
	setIfEmpty(&c.LogFile, f.LogFile)
	setIfEmpty(&c.ServerPort, f.ServerPort)
	setIfEmpty(&c.logLevelName, fc.LogLevel)
	return nil
}

func (c *Config) mergeEnv() {
	c.LLMProvider = Provider(strings.ToLower(getEnv("DREAMER_PROVIDER", string(c.LLMProvider))))
	c.LLMModel = getEnv("DREAMER_MODEL", c.LLMModel)
	c.LLMBaseURL = getEnv("DREAMER_BASE_URL", c.LLMBaseURL)

	c.GroqAPIKey = getEnv("GROQ_API_KEY", c.GroqAPIKey)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.OllamaHost = getEnv("OLLAMA_HOST", c.OllamaHost)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)

	c.LogFile = getEnv("DREAMER_LOG_FILE", c.LogFile)
	c.logLevelName = getEnv("DREAMER_LOG_LEVEL", c.logLevelName)

	c.ServerPort = getEnv("DREAMER_SERVER_PORT", c.ServerPort)
}

// APIKey returns the credential of the configured provider. Providers that
// authenticate without a key (ollama, bedrock) return "".
func (c Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// RequiresAPIKey reports whether the provider needs a bearer credential.
func (c Config) RequiresAPIKey() bool {
	switch c.LLMProvider {
	case ProviderOllama, ProviderBedrock:
		return false
	default:
		return true
	}
}

// Validate checks that the selected provider is known and has a credential.
func (c Config) Validate() error {
	if _, ok := defaultModels[c.LLMProvider]; !ok {
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}
	if c.RequiresAPIKey() && c.APIKey() == "" {
		return fmt.Errorf("%w for provider %s", ErrMissingAPIKey, c.LLMProvider)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
