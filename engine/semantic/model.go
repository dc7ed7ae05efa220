package semantic

import (
	"context"

	"github.com/stayscout/stayscout/engine/domain"
)

// Hit is a single nearest-neighbor result. Score is a similarity in [0,1]:
// the collection uses the cosine metric, for which Qdrant reports
// 1 - cosine distance directly.
type Hit struct {
	ID      string          `json:"id"`
	Score   float32         `json:"score"`
	Summary string          `json:"summary"`
	Meta    domain.Metadata `json:"meta"`
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
