package retrieval

import (
	"context"
	"errors"
	"testing"

	"adaptive-dialogue-be/pkg/embedding"
)

type staticEmbedder struct {
	vector []float32
	err    error
}

func (e *staticEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: e.vector},
	}, nil
}

func indexed(id string, vec []float32) IndexedBlock {
	return IndexedBlock{
		Block:     Block{ID: id, Title: "Блок " + id, Content: "текст"},
		Embedding: vec,
	}
}

func TestVectorRetrieverOrdersBySimilarity(t *testing.T) {
	blocks := []IndexedBlock{
		indexed("ortho", []float32{0, 1, 0}),
		indexed("aligned", []float32{1, 0, 0}),
		indexed("partial", []float32{1, 1, 0}),
	}
	r := NewVectorRetriever(blocks, &staticEmbedder{vector: []float32{1, 0, 0}})

	got, err := r.Retrieve(context.Background(), "вопрос", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Block.ID != "aligned" || got[1].Block.ID != "partial" || got[2].Block.ID != "ortho" {
		t.Errorf("order = %s, %s, %s", got[0].Block.ID, got[1].Block.ID, got[2].Block.ID)
	}
	if got[0].Score < 0.99 {
		t.Errorf("top score = %v, want ~1", got[0].Score)
	}
	if got[2].Score > 0.01 {
		t.Errorf("orthogonal score = %v, want ~0", got[2].Score)
	}
}

func TestVectorRetrieverTruncatesToTopK(t *testing.T) {
	blocks := []IndexedBlock{
		indexed("a", []float32{1, 0}),
		indexed("b", []float32{0.9, 0.1}),
		indexed("c", []float32{0, 1}),
	}
	r := NewVectorRetriever(blocks, &staticEmbedder{vector: []float32{1, 0}})

	got, err := r.Retrieve(context.Background(), "вопрос", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
}

func TestVectorRetrieverEmptyIndex(t *testing.T) {
	r := NewVectorRetriever(nil, &staticEmbedder{vector: []float32{1}})
	got, err := r.Retrieve(context.Background(), "вопрос", 5)
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestVectorRetrieverEmbedderFailure(t *testing.T) {
	r := NewVectorRetriever([]IndexedBlock{indexed("a", []float32{1})}, &staticEmbedder{err: errors.New("down")})
	if _, err := r.Retrieve(context.Background(), "вопрос", 5); err == nil {
		t.Error("expected error when the embedder fails")
	}
}

func TestVectorRetrieverDimensionMismatch(t *testing.T) {
	blocks := []IndexedBlock{indexed("short", []float32{1})}
	r := NewVectorRetriever(blocks, &staticEmbedder{vector: []float32{1, 0}})

	got, err := r.Retrieve(context.Background(), "вопрос", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 || got[0].Score != 0 {
		t.Errorf("mismatched dimensions should score zero, got %+v", got)
	}
}
