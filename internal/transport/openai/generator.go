package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/metrics"
	"github.com/kailas-cloud/platepick/internal/prompt"
)

// Generation defaults for the Groq OpenAI-compatible endpoint.
const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultChatModel   = "llama-3.1-8b-instant"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// ChatGenerator produces recommendation text via chat completions.
type ChatGenerator struct {
	client       *openai.Client
	model        string
	temperature  float32
	maxTokens    int
	systemPrompt string
	provider     string
	logger       *zap.Logger
}

// ChatConfig holds the generation provider settings.
type ChatConfig struct {
	APIKey       string
	BaseURL      string // defaults to DefaultGroqBaseURL
	Model        string // defaults to DefaultChatModel
	Temperature  float32
	MaxTokens    int
	SystemPrompt string // defaults to prompt.DefaultSystem
	Provider     string
	Logger       *zap.Logger
}

var _ domain.Generator = (*ChatGenerator)(nil)

// NewChatGenerator creates an OpenAI-compatible chat generator.
func NewChatGenerator(cfg *ChatConfig) *ChatGenerator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = prompt.DefaultSystem
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &ChatGenerator{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		temperature:  cfg.Temperature,
		maxTokens:    maxTokens,
		systemPrompt: system,
		provider:     cfg.Provider,
		logger:       log,
	}
}

// Generate implements domain.Generator. Failures wrap domain.ErrGenerationUnavailable.
func (g *ChatGenerator) Generate(ctx context.Context, query, evidence string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User(query, evidence)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	call := metrics.StartGeneration(g.provider, g.model)
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		call.Fail(errorType(err))
		return "", parseAPIError("generation", err, domain.ErrGenerationUnavailable)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		call.Fail(metrics.ReasonEmptyResponse)
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationUnavailable)
	}

	duration := call.Succeed()
	call.Tokens("prompt", resp.Usage.PromptTokens)
	call.Tokens("completion", resp.Usage.CompletionTokens)

	g.logger.Debug("Chat completion finished",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *ChatGenerator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
