// Package embeddingutils builds the configured embeddings.Embedder.
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/hearth/pkg/embeddings"
	"github.com/papercomputeco/hearth/pkg/embeddings/ollama"
	"github.com/papercomputeco/hearth/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint
}

// NewEmbedder returns nil, nil for the "none" provider: semantic search is
// then disabled and retrieval goes straight to keyword search.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "", "none":
		return nil, nil
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}), nil
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
