// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/pdiddy/paper-picker/pkg/types"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	summaryMaxTokens = 1500
	temperature      = 0.3

	// rateLimitRetries bounds the client's own retries on 429 and 5xx. The
	// summarizer retries other failures on top.
	rateLimitRetries = 2
)

// OpenAIBackend calls an OpenAI-compatible chat-completions endpoint.
type OpenAIBackend struct {
	Model  string
	client openai.Client
}

// NewOpenAIBackend returns a backend for cfg. An API key is required.
// Extra options are applied after the ones derived from cfg.
func NewOpenAIBackend(cfg types.SummaryConfig, opts ...option.RequestOption) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer requires an API key (set summary.api_key, OPENAI_API_KEY, or .secrets/openai-api-key)")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(base, "/")),
		option.WithMaxRetries(rateLimitRetries),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIBackend{
		Model:  cfg.Model,
		client: openai.NewClient(clientOpts...),
	}, nil
}

// Complete sends one system and one user message and returns the reply.
func (b *OpenAIBackend) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: b.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(summaryMaxTokens),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("calling chat API: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
