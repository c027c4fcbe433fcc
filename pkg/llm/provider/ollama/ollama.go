// Package ollama implements llm.Provider against Ollama's native /api/chat,
// which streams its reply as newline delimited JSON.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/hearth/pkg/llm"
)

const (
	providerName = "ollama"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Config holds configuration for the Ollama provider.
type Config struct {
	BaseURL string

	// KeepAlive controls how long the model stays loaded, e.g. "5m".
	KeepAlive string

	HTTPClient *http.Client
}

// Provider talks to a local or remote Ollama server.
type Provider struct {
	endpoint   string
	keepAlive  string
	httpClient *http.Client
}

// New creates an Ollama provider.
func New(cfg Config) *Provider {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		// Streams are bounded by the request context.
		client = &http.Client{}
	}

	return &Provider{
		endpoint:   baseURL + "/api/chat",
		keepAlive:  cfg.KeepAlive,
		httpClient: client,
	}
}

func (p *Provider) Name() string {
	return providerName
}

// Complete performs a non-streaming chat completion.
func (p *Provider) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	resp, err := p.post(ctx, p.newRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding ollama response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama completion failed: %s", out.Error)
	}

	result := &llm.CompletionResponse{
		Model:      out.Model,
		Content:    out.Message.Content,
		StopReason: out.DoneReason,
	}
	result.Usage = usage(out)
	return result, nil
}

// Stream performs a streaming chat completion, handing each content delta
// to onDelta in arrival order.
func (p *Provider) Stream(ctx context.Context, req *llm.CompletionRequest, onDelta llm.DeltaFunc) (*llm.CompletionResponse, error) {
	resp, err := p.post(ctx, p.newRequest(req, true))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var (
		full   strings.Builder
		result = &llm.CompletionResponse{Model: req.Model}
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("decoding ollama stream: %w", err)
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama stream failed: %s", chunk.Error)
		}
		if chunk.Model != "" {
			result.Model = chunk.Model
		}

		if delta := chunk.Message.Content; delta != "" {
			full.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return nil, err
			}
		}

		if chunk.Done {
			result.StopReason = chunk.DoneReason
			result.Usage = usage(chunk)
			result.Content = full.String()
			return result, nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("ollama stream failed: %w", err)
	}
	return nil, errors.New("ollama stream ended before done")
}

func (p *Provider) newRequest(req *llm.CompletionRequest, stream bool) chatRequest {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := chatRequest{
		Model:     req.Model,
		Messages:  messages,
		Stream:    stream,
		KeepAlive: p.keepAlive,
	}
	if req.JSONObject {
		body.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = &requestOption{Temperature: req.Temperature}
		if req.MaxTokens > 0 {
			n := req.MaxTokens
			body.Options.NumPredict = &n
		}
	}
	return body
}

func (p *Provider) post(ctx context.Context, body chatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("sending ollama request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func usage(r chatResponse) *llm.Usage {
	if r.PromptEvalCount == 0 && r.EvalCount == 0 {
		return nil
	}
	return &llm.Usage{
		PromptTokens:     r.PromptEvalCount,
		CompletionTokens: r.EvalCount,
		TotalTokens:      r.PromptEvalCount + r.EvalCount,
	}
}

var _ llm.Provider = (*Provider)(nil)
