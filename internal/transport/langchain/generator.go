package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/platepick/internal/domain"
	"github.com/kailas-cloud/platepick/internal/metrics"
	"github.com/kailas-cloud/platepick/internal/prompt"
)

// GeneratorConfig extends Config with sampling settings.
type GeneratorConfig struct {
	Config
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// Generator produces recommendation text through llms.Model.GenerateContent.
type Generator struct {
	client       llms.Model
	model        string
	provider     string
	temperature  float64
	maxTokens    int
	systemPrompt string
	logger       *zap.Logger
}

var _ domain.Generator = (*Generator)(nil)

// NewGenerator creates a chat generator against an OpenAI-compatible endpoint.
func NewGenerator(cfg *GeneratorConfig) (*Generator, error) {
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.token()),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	return newGenerator(client, cfg), nil
}

func newGenerator(client llms.Model, cfg *GeneratorConfig) *Generator {
	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = prompt.DefaultSystem
	}
	return &Generator{
		client:       client,
		model:        cfg.Model,
		provider:     cfg.Provider,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		systemPrompt: system,
		logger:       cfg.logger(),
	}
}

// Generate implements domain.Generator. Failures wrap domain.ErrGenerationUnavailable.
func (g *Generator) Generate(ctx context.Context, query, evidence string) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(g.systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt.User(query, evidence))},
		},
	}

	opts := []llms.CallOption{llms.WithTemperature(g.temperature)}
	if g.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(g.maxTokens))
	}

	call := metrics.StartGeneration(g.provider, g.model)
	resp, err := g.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		call.Fail(metrics.ReasonAPIError)
		return "", fmt.Errorf("langchain generate: %w: %w", domain.ErrGenerationUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		call.Fail(metrics.ReasonEmptyResponse)
		return "", fmt.Errorf("langchain generate: empty response: %w", domain.ErrGenerationUnavailable)
	}

	duration := call.Succeed()

	g.logger.Debug("Langchain generation completed",
		zap.String("model", g.model),
		zap.String("stop_reason", resp.Choices[0].StopReason),
		zap.Duration("duration", duration),
	)
	return resp.Choices[0].Content, nil
}
