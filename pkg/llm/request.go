package llm

// CompletionRequest is a provider-agnostic chat completion request.
type CompletionRequest struct {
	// Model to use for completion
	Model string `json:"model"`

	// Messages in order, system prompt first
	Messages []Message `json:"messages"`

	// Sampling temperature; nil leaves the provider default
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens caps the generated tokens; zero leaves the provider default
	MaxTokens int `json:"max_tokens,omitempty"`

	// JSONObject asks the provider to constrain output to a JSON object
	JSONObject bool `json:"json_object,omitempty"`
}

// Float returns a pointer to f, for optional request fields.
func Float(f float64) *float64 {
	return &f
}
