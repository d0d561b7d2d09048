package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"adaptive-dialogue-be/pkg/embedding"
	"adaptive-dialogue-be/pkg/llm"
	"adaptive-dialogue-be/pkg/memory"
	"adaptive-dialogue-be/pkg/policy"
	"adaptive-dialogue-be/pkg/response"
	"adaptive-dialogue-be/pkg/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0, 0}},
	}, nil
}

// fakeRegistry hands out memories backed by a shared in-memory store.
type fakeRegistry struct {
	mu       sync.Mutex
	store    memory.Store
	sessions map[string]*memory.ConversationMemory
}

func newFakeRegistry(store memory.Store) *fakeRegistry {
	return &fakeRegistry{store: store, sessions: map[string]*memory.ConversationMemory{}}
}

func (r *fakeRegistry) Acquire(ctx context.Context, sessionID, userID string) (*memory.ConversationMemory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mem, ok := r.sessions[sessionID]; ok {
		return mem, nil
	}
	mem := memory.NewConversationMemory(sessionID, userID, r.store, fakeEmbedder{}, nil, memory.DefaultConfig())
	r.sessions[sessionID] = mem
	return mem, nil
}

type fakeRetriever struct {
	blocks    []retrieval.ScoredBlock
	err       error
	lastQuery string
	lastTopK  int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]retrieval.ScoredBlock, error) {
	f.lastQuery = query
	f.lastTopK = topK
	return f.blocks, f.err
}

type fakeClassifier struct {
	analysis *policy.StateAnalysis
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, message string, history []string) (*policy.StateAnalysis, error) {
	return f.analysis, f.err
}

type fakeLLM struct {
	answer     string
	err        error
	lastSystem string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	for _, msg := range history {
		if msg.Role == "system" {
			f.lastSystem = msg.Content
		}
	}
	return f.answer, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.answer, f.err
}

type recordingQueue struct {
	mu    sync.Mutex
	turns []memory.Turn
}

func (q *recordingQueue) Enqueue(ctx context.Context, sessionID string, turn memory.Turn, embedding []float32) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.turns = append(q.turns, turn)
	return nil
}

// failingStore fails every SaveTurn to force the retry path.
type failingStore struct {
	memory.Store
}

func (s failingStore) SaveTurn(ctx context.Context, sessionID string, turn memory.Turn, embedding []float32) error {
	return errors.New("database unavailable")
}

func testBlocks() []retrieval.ScoredBlock {
	return []retrieval.ScoredBlock{
		{Block: retrieval.Block{ID: "b1", Title: "Осознавание", Summary: "О внимании", Content: "Текст блока.", ComplexityScore: 0.3}, Score: 0.9},
		{Block: retrieval.Block{ID: "b2", Title: "Дыхание", Summary: "Практика", Content: "Ещё текст.", ComplexityScore: 0.4}, Score: 0.7},
	}
}

func newTestAnswerer(retriever *fakeRetriever, classifier StateClassifier, provider llm.LLMProvider, queue RetryQueue, store memory.Store) (*AdaptiveAnswerer, *fakeRegistry) {
	if store == nil {
		store = memory.NewInMemoryStore()
	}
	registry := newFakeRegistry(store)
	answerer := NewAdaptiveAnswerer(
		registry,
		classifier,
		retriever,
		nil,
		nil,
		nil,
		nil,
		nil,
		response.NewGenerator(provider, "test-model", 0.7, 900),
		nil,
		queue,
		nopLogger{},
		Config{},
	)
	return answerer, registry
}

func TestAnswerSuccessPath(t *testing.T) {
	retriever := &fakeRetriever{blocks: testBlocks()}
	provider := &fakeLLM{answer: "Осознавание начинается с внимания к тому, что происходит сейчас."}
	classifier := &fakeClassifier{analysis: &policy.StateAnalysis{
		PrimaryState:  policy.StateCurious,
		Confidence:    0.8,
		EmotionalTone: "calm",
		Depth:         "surface",
	}}

	answerer, _ := newTestAnswerer(retriever, classifier, provider, nil, nil)
	result, err := answerer.Answer(context.Background(), Request{
		SessionID: "s1",
		UserID:    "u1",
		Query:     "Что такое осознавание и как его развивать?",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEmpty(t, result.Answer)
	assert.NotEmpty(t, result.Sources)
	assert.Equal(t, len(result.Sources), result.BlocksUsed)
	assert.Equal(t, policy.StageSurface, result.Stage)
	assert.Equal(t, "Хотите узнать что-то ещё по этой теме?", result.FeedbackPrompt)
	assert.Contains(t, provider.lastSystem, "КОНТЕКСТ ПОЛЬЗОВАТЕЛЯ")
	assert.Contains(t, provider.lastSystem, "curious")
}

func TestAnswerRecordsTurnInMemory(t *testing.T) {
	retriever := &fakeRetriever{blocks: testBlocks()}
	provider := &fakeLLM{answer: "Ответ."}

	answerer, registry := newTestAnswerer(retriever, nil, provider, nil, nil)
	ctx := context.Background()
	_, err := answerer.Answer(ctx, Request{SessionID: "s1", UserID: "u1", Query: "Расскажи про внимание к себе"})
	require.NoError(t, err)

	mem, err := registry.Acquire(ctx, "s1", "u1")
	require.NoError(t, err)
	require.Equal(t, 1, mem.TurnCount())
	turns := mem.LastTurns(1)
	assert.Equal(t, "Расскажи про внимание к себе", turns[0].UserInput)
	assert.NotZero(t, turns[0].BlocksUsed)
	assert.Contains(t, turns[0].Concepts, "Осознавание")
}

func TestAnswerPartialWhenNothingRetrieved(t *testing.T) {
	retriever := &fakeRetriever{blocks: nil}
	provider := &fakeLLM{answer: "не должно вызваться"}

	answerer, registry := newTestAnswerer(retriever, nil, provider, nil, nil)
	ctx := context.Background()
	result, err := answerer.Answer(ctx, Request{SessionID: "s1", UserID: "u1", Query: "Вопрос без материала в базе"})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, noMaterialAnswer, result.Answer)
	assert.Equal(t, rephrasePrompt, result.FeedbackPrompt)
	assert.Zero(t, result.BlocksUsed)

	// The exchange is still remembered.
	mem, err := registry.Acquire(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, mem.TurnCount())
}

func TestAnswerErrorWhenRetrievalFails(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("index unavailable")}
	provider := &fakeLLM{answer: "не должно вызваться"}

	answerer, registry := newTestAnswerer(retriever, nil, provider, nil, nil)
	ctx := context.Background()
	result, err := answerer.Answer(ctx, Request{SessionID: "s1", UserID: "u1", Query: "Любой вопрос"})
	require.NoError(t, err)

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Answer, "Произошла ошибка")

	mem, err := registry.Acquire(ctx, "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, mem.TurnCount())
}

func TestAnswerErrorWhenGenerationFails(t *testing.T) {
	retriever := &fakeRetriever{blocks: testBlocks()}
	provider := &fakeLLM{err: errors.New("model offline")}

	answerer, _ := newTestAnswerer(retriever, nil, provider, nil, nil)
	result, err := answerer.Answer(context.Background(), Request{SessionID: "s1", UserID: "u1", Query: "Любой вопрос про практику"})
	require.NoError(t, err)

	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "Произошла ошибка при формировании ответа.", result.Answer)
}

func TestAnswerQueuesTurnWhenDurableWriteFails(t *testing.T) {
	retriever := &fakeRetriever{blocks: testBlocks()}
	provider := &fakeLLM{answer: "Ответ."}
	queue := &recordingQueue{}
	store := failingStore{Store: memory.NewInMemoryStore()}

	answerer, _ := newTestAnswerer(retriever, nil, provider, queue, store)
	result, err := answerer.Answer(context.Background(), Request{SessionID: "s1", UserID: "u1", Query: "Вопрос про внимание и практику"})
	require.NoError(t, err)

	// The user still gets a full answer.
	assert.Equal(t, StatusSuccess, result.Status)

	queue.mu.Lock()
	defer queue.mu.Unlock()
	require.Len(t, queue.turns, 1)
	assert.Equal(t, 1, queue.turns[0].TurnNumber)
}

func TestAnswerHybridQueryCarriesMemory(t *testing.T) {
	retriever := &fakeRetriever{blocks: testBlocks()}
	provider := &fakeLLM{answer: "Ответ."}

	answerer, _ := newTestAnswerer(retriever, nil, provider, nil, nil)
	ctx := context.Background()

	_, err := answerer.Answer(ctx, Request{SessionID: "s1", UserID: "u1", Query: "Первый вопрос про осознавание"})
	require.NoError(t, err)
	_, err = answerer.Answer(ctx, Request{SessionID: "s1", UserID: "u1", Query: "Второй вопрос про дыхание"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(retriever.lastQuery, "ВОПРОС-ЯКОРЬ: "))
	assert.Contains(t, retriever.lastQuery, "Второй вопрос про дыхание")
	assert.Contains(t, retriever.lastQuery, "КОРОТКИЙ КОНТЕКСТ: ")
}

func TestAnswerLowConfidenceClarification(t *testing.T) {
	// A single weak block drives confidence below the clarification threshold.
	retriever := &fakeRetriever{blocks: []retrieval.ScoredBlock{
		{Block: retrieval.Block{ID: "b1", Title: "Тема", Content: "Текст.", ComplexityScore: 0.2}, Score: 0.1},
	}}
	provider := &fakeLLM{answer: "Похоже, тут важно уточнить"}

	answerer, _ := newTestAnswerer(retriever, nil, provider, nil, nil)
	result, err := answerer.Answer(context.Background(), Request{SessionID: "s1", UserID: "u1", Query: "эм"})
	require.NoError(t, err)

	assert.Equal(t, policy.ModeClarification, result.Mode)
	assert.Equal(t, policy.ConfidenceLow, result.ConfidenceLevel)
	assert.True(t, strings.HasSuffix(result.Answer, "Что в этом для вас сейчас главное?"))
}
