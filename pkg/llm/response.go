package llm

// CompletionResponse is a provider-agnostic completion result. For streaming
// calls Content holds the concatenation of every delta.
type CompletionResponse struct {
	Model      string `json:"model"`
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      *Usage `json:"usage,omitempty"`
}

// Usage contains token counts reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// ErrorResponse is the JSON error body returned by hearth HTTP handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}
