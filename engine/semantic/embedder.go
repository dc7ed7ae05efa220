package semantic

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// EmbedDims is the vector width of text-embedding-3-small.
const EmbedDims = 1536

// OpenAIEmbedder implements Embedder against an OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder wraps an existing client with the given model.
func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{client: client, model: openai.EmbeddingModel(model)}
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embed: empty response from %s", e.model)
	}
	return resp.Data[0].Embedding, nil
}
