// Package openai implements llm.Provider on top of the official OpenAI Go SDK.
// Any OpenAI compatible endpoint (Ollama's /v1, vLLM, ...) works through BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/papercomputeco/hearth/pkg/llm"
)

const providerName = "openai"

// Config holds configuration for the OpenAI provider.
type Config struct {
	APIKey string

	// BaseURL is an optional custom endpoint.
	BaseURL string
}

// Provider talks to the OpenAI chat completions API.
type Provider struct {
	client *openai.Client
}

// New creates a new OpenAI provider. A missing API key yields
// llm.ErrProviderUnavailable so callers can degrade to a 503.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required for openai", llm.ErrProviderUnavailable)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &Provider{client: &client}, nil
}

func (p *Provider) Name() string {
	return providerName
}

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.client.Chat.Completions.New(ctx, newParams(req))
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", err)
	}

	result := &llm.CompletionResponse{
		Model: resp.Model,
		Usage: &llm.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
		result.StopReason = string(resp.Choices[0].FinishReason)
	}

	return result, nil
}

// Stream performs a streaming chat completion and hands each content delta to
// onDelta in the order the server sent it.
func (p *Provider) Stream(ctx context.Context, req *llm.CompletionRequest, onDelta llm.DeltaFunc) (*llm.CompletionResponse, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, newParams(req))
	defer stream.Close()

	var (
		full   strings.Builder
		result = &llm.CompletionResponse{Model: req.Model}
	)

	for stream.Next() {
		chunk := stream.Current()
		if chunk.Model != "" {
			result.Model = chunk.Model
		}
		if chunk.Usage.TotalTokens > 0 {
			result.Usage = &llm.Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			result.StopReason = choice.FinishReason
		}

		delta := choice.Delta.Content
		if delta == "" {
			continue
		}

		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return nil, err
		}
	}

	if err := stream.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("openai stream failed: %w", err)
	}

	result.Content = full.String()
	return result, nil
}

func newParams(req *llm.CompletionRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params
}

var _ llm.Provider = (*Provider)(nil)
