// Package vectorutils builds the configured vector.Driver.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/hearth/pkg/vector"
	"github.com/papercomputeco/hearth/pkg/vector/qdrant"
	"github.com/papercomputeco/hearth/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// Target is a database path for sqlite and host:port for qdrant.
	Target     string
	APIKey     string
	Dimensions uint
	Logger     *slog.Logger
}

// NewVectorDriver returns nil, nil for the "none" provider.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:     o.Target,
			APIKey:     o.APIKey,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
