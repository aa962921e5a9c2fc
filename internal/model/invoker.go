// Package model provides the language model client used by pipeline
// runs. It adapts the OpenAI Chat Completions API (and compatible
// providers via a custom base URL) to the engine's Invoker contract.
package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/JaimeStill/lucid/engine"
	"github.com/JaimeStill/lucid/internal/config"
)

const systemPrompt = "You are a medical translation assistant. You rewrite " +
	"clinical documents in plain, patient-friendly language without changing " +
	"their meaning. When asked for structured output, respond with valid JSON."

// Invoker sends step prompts to a chat completion model.
type Invoker struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
	callTimeout time.Duration
	logger      *slog.Logger
}

// New creates an Invoker from the model configuration.
func New(cfg *config.ModelConfig, logger *slog.Logger) *Invoker {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Invoker{
		client:      openai.NewClient(opts...),
		model:       cfg.Name,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		callTimeout: cfg.CallTimeoutDuration(),
		logger:      logger.With("system", "model"),
	}
}

// Invoke sends the prompt and returns the completion text. The timeout
// bounds the individual call; zero falls back to the configured default.
// Errors are wrapped for the engine's retry classification.
func (i *Invoker) Invoke(ctx context.Context, prompt string, timeout time.Duration) (*engine.Output, error) {
	if timeout <= 0 {
		timeout = i.callTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := i.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: i.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(i.maxTokens),
		Temperature:         openai.Float(i.temperature),
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, engine.Retryable(fmt.Errorf("completion returned no choices"))
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return nil, engine.Fatal(fmt.Errorf("completion returned empty content"))
	}

	i.logger.Debug("model call completed",
		"model", i.model,
		"elapsed", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &engine.Output{
		Text: text,
		Metadata: map[string]any{
			"model":         resp.Model,
			"finish_reason": string(resp.Choices[0].FinishReason),
		},
	}, nil
}
