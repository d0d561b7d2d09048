package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"adaptive-dialogue-be/pkg/embedding"
)

// IndexedBlock is a corpus block with its precomputed embedding, as produced
// by the offline indexing step.
type IndexedBlock struct {
	Block     Block     `json:"block"`
	Embedding []float32 `json:"embedding"`
}

// VectorRetriever searches an in-memory set of indexed blocks by cosine
// similarity. The query is embedded on every call; block vectors are fixed.
type VectorRetriever struct {
	blocks   []IndexedBlock
	embedder embedding.EmbeddingProvider
}

var _ Retriever = (*VectorRetriever)(nil)

func NewVectorRetriever(blocks []IndexedBlock, embedder embedding.EmbeddingProvider) *VectorRetriever {
	return &VectorRetriever{
		blocks:   blocks,
		embedder: embedder,
	}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int) ([]ScoredBlock, error) {
	if len(r.blocks) == 0 || topK <= 0 {
		return nil, nil
	}

	resp, err := r.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := resp.Embedding.Values

	scored := make([]ScoredBlock, 0, len(r.blocks))
	for _, ib := range r.blocks {
		scored = append(scored, ScoredBlock{
			Block: ib.Block,
			Score: cosineSimilarity(queryVec, ib.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
