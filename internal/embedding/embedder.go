// Package embedding turns entity text into vectors and keeps the stored
// chunk embeddings consistent with entity content.
package embedding

import "context"

// Embedder maps text to a fixed-dimension float vector usable for cosine
// similarity. Implementations call an external model and must enforce their
// own timeout.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelName() string
}
