package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
)

// LLMClient sends single-turn chat completions to an OpenAI-compatible API.
// It satisfies ChatCompleter.
type LLMClient struct {
	api         openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *logrus.Logger
}

// NewLLMClient builds a client from the LLM section of the config. Retries
// are disabled at the transport level; the scoring engine owns retry policy.
func NewLLMClient(cfg *config.LLMConfig, logger *logrus.Logger) *LLMClient {
	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	)

	return &LLMClient{
		api:         api,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Complete sends prompt as a single user message and returns the assistant
// reply text verbatim.
func (c *LLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	c.logger.WithFields(logrus.Fields{
		"model":        c.model,
		"reply_length": len(content),
	}).Debug("LLM completion received")

	return content, nil
}
