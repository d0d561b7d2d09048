package retrieval

import "context"

// Block is a unit of retrievable corpus content.
type Block struct {
	ID              string
	Title           string
	Summary         string
	Content         string
	ComplexityScore float64 // 0..1, used by stage gating
}

// ScoredBlock pairs a block with its relevance score from the index.
type ScoredBlock struct {
	Block Block
	Score float64
}

// Retriever is the text-retrieval boundary. Implementations wrap a TF-IDF
// index or an equivalent nearest-neighbor search.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]ScoredBlock, error)
}

// Reranker reorders retrieved candidates. Optional.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []ScoredBlock, topK int) ([]ScoredBlock, error)
}

// SafeRerank applies the reranker and falls back to the original ordering on
// any failure. Reranking must never take the whole answer down.
func SafeRerank(ctx context.Context, reranker Reranker, query string, candidates []ScoredBlock, topK int) []ScoredBlock {
	if reranker == nil || len(candidates) == 0 {
		return candidates
	}
	reranked, err := reranker.Rerank(ctx, query, candidates, topK)
	if err != nil || len(reranked) == 0 {
		return candidates
	}
	return reranked
}
