package agent

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"adaptive-dialogue-be/internal/pkg/logger"
	"adaptive-dialogue-be/pkg/memory"
	"adaptive-dialogue-be/pkg/policy"
	"adaptive-dialogue-be/pkg/response"
	"adaptive-dialogue-be/pkg/retrieval"
)

const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusError   = "error"

	noMaterialAnswer = "К сожалению, я не нашёл релевантного материала для этого вопроса. Попробуйте переформулировать или спросить что-то более конкретное."
	rephrasePrompt   = "Попробуйте переформулировать вопрос."
)

// StateClassifier infers the user's psychological state from a message and
// recent history. Implementations sit upstream of the policy engine; a nil
// classifier simply disables state-aware signals.
type StateClassifier interface {
	Classify(ctx context.Context, message string, history []string) (*policy.StateAnalysis, error)
}

// SessionRegistry hands out the live per-session conversation memory.
type SessionRegistry interface {
	Acquire(ctx context.Context, sessionID, userID string) (*memory.ConversationMemory, error)
}

// RetryQueue accepts turn writes that failed against the durable store.
type RetryQueue interface {
	Enqueue(ctx context.Context, sessionID string, turn memory.Turn, embedding []float32) error
}

// Request is one dialogue turn to answer.
type Request struct {
	SessionID string
	UserID    string
	Query     string
	TopK      int // retrieval depth, 0 uses the configured default
}

// Source describes one corpus block an answer leaned on.
type Source struct {
	BlockID         string
	Title           string
	Summary         string
	ComplexityScore float64
}

// Answer is the full outcome of one pipeline run.
type Answer struct {
	Status              string
	Answer              string
	Sources             []Source
	BlocksUsed          int
	Mode                policy.Mode
	Stage               policy.Stage
	RuleID              int
	Reason              string
	ConfidenceScore     float64
	ConfidenceLevel     policy.ConfidenceLevel
	AdjustedByStage     bool
	StateAnalysis       *policy.StateAnalysis
	FeedbackPrompt      string
	ConversationContext string
	Timestamp           time.Time
	ProcessingTime      time.Duration
}

// Config carries the pipeline knobs.
type Config struct {
	TopKBlocks   int
	RerankTopK   int
	HistoryDepth int
}

func (c Config) withDefaults() Config {
	if c.TopKBlocks <= 0 {
		c.TopKBlocks = 5
	}
	if c.RerankTopK <= 0 {
		c.RerankTopK = 5
	}
	if c.HistoryDepth <= 0 {
		c.HistoryDepth = 3
	}
	return c
}

// AdaptiveAnswerer runs the full dialogue pipeline for one turn: hydrate
// memory, classify state, retrieve over the hybrid query, route through the
// decision gate, generate and format, then persist the exchange. A turn is
// recorded in memory on every path, including partial and error answers.
type AdaptiveAnswerer struct {
	registry     SessionRegistry
	classifier   StateClassifier
	retriever    retrieval.Retriever
	reranker     retrieval.Reranker
	queryBuilder *retrieval.HybridQueryBuilder
	detector     *policy.SignalDetector
	gate         *policy.DecisionGate
	stageFilter  *policy.StageFilter
	generator    *response.Generator
	formatter    *response.Formatter
	retryQueue   RetryQueue
	logger       logger.ILogger
	cfg          Config
}

func NewAdaptiveAnswerer(
	registry SessionRegistry,
	classifier StateClassifier,
	retriever retrieval.Retriever,
	reranker retrieval.Reranker,
	queryBuilder *retrieval.HybridQueryBuilder,
	detector *policy.SignalDetector,
	gate *policy.DecisionGate,
	stageFilter *policy.StageFilter,
	generator *response.Generator,
	formatter *response.Formatter,
	retryQueue RetryQueue,
	log logger.ILogger,
	cfg Config,
) *AdaptiveAnswerer {
	if queryBuilder == nil {
		queryBuilder = retrieval.NewHybridQueryBuilder(0, 0, 0)
	}
	if detector == nil {
		detector = policy.NewSignalDetector(nil)
	}
	if gate == nil {
		gate = policy.NewDecisionGate(nil, nil, nil)
	}
	if stageFilter == nil {
		stageFilter = policy.NewStageFilter()
	}
	if formatter == nil {
		formatter = response.NewFormatter(nil)
	}
	return &AdaptiveAnswerer{
		registry:     registry,
		classifier:   classifier,
		retriever:    retriever,
		reranker:     reranker,
		queryBuilder: queryBuilder,
		detector:     detector,
		gate:         gate,
		stageFilter:  stageFilter,
		generator:    generator,
		formatter:    formatter,
		retryQueue:   retryQueue,
		logger:       log,
		cfg:          cfg.withDefaults(),
	}
}

// Answer processes one user message end to end.
func (a *AdaptiveAnswerer) Answer(ctx context.Context, req Request) (*Answer, error) {
	started := time.Now()
	cfg := a.cfg

	ctx, span := otel.Tracer("pkg/agent").Start(ctx, "AdaptiveAnswerer.Answer",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	topK := req.TopK
	if topK <= 0 {
		topK = cfg.TopKBlocks
	}

	mem, err := a.registry.Acquire(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("acquire session %s: %w", req.SessionID, err)
	}

	adaptiveCtx := mem.GetAdaptiveContext(ctx, req.Query)
	conversationContext := mem.FormatContext(adaptiveCtx)

	analysis := a.classify(ctx, req.Query, mem)

	workingState := mem.WorkingState()
	stage := policy.ResolveStage(workingState.UserStage(), analysis)

	workingStateLine := ""
	if workingState != nil {
		workingStateLine = workingState.ContextLine()
	}

	hybridQuery, err := a.queryBuilder.Build(req.Query, mem.Summary(), workingStateLine, conversationContext)
	if err != nil {
		return nil, fmt.Errorf("build hybrid query: %w", err)
	}

	retrieved, err := a.retriever.Retrieve(ctx, hybridQuery, topK)
	if err != nil {
		a.logger.Error("agent", "retrieval failed", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		answer := a.errorAnswer(fmt.Sprintf("Произошла ошибка при обработке запроса: %s", err.Error()), analysis, started)
		a.record(ctx, mem, req, answer, nil)
		return answer, nil
	}

	rerankK := len(retrieved)
	if topK < rerankK {
		rerankK = topK
	}
	if cfg.RerankTopK < rerankK {
		rerankK = cfg.RerankTopK
	}
	if rerankK < 1 {
		rerankK = 1
	}
	retrieved = retrieval.SafeRerank(ctx, a.reranker, req.Query, retrieved, rerankK)

	signals := a.detector.Detect(req.Query, retrieved, analysis)
	filtered := a.stageFilter.FilterBlocks(retrieved, stage)
	routing := a.gate.Route(signals, stage, len(filtered))
	span.SetAttributes(
		attribute.String("routing.mode", string(routing.Mode)),
		attribute.Int("routing.rule_id", routing.RuleID),
		attribute.Float64("routing.confidence", routing.Confidence.Score),
	)

	blocks := filtered
	if routing.BlockCap < len(blocks) {
		blocks = blocks[:routing.BlockCap]
	}

	if len(blocks) == 0 {
		a.logger.Warn("agent", "no relevant blocks", map[string]interface{}{
			"session_id": req.SessionID,
			"query":      preview(req.Query, 50),
		})
		answer := a.partialAnswer(analysis, routing, conversationContext, started)
		a.record(ctx, mem, req, answer, nil)
		return answer, nil
	}

	generated, err := a.generator.Generate(ctx, response.GenerateParams{
		Query:                   req.Query,
		Blocks:                  blocks,
		ConversationContext:     conversationContext,
		Mode:                    routing.Mode,
		ConfidenceLevel:         routing.Confidence.Level,
		Forbid:                  routing.Forbid,
		AdditionalSystemContext: stateContext(analysis),
	})
	if err != nil {
		a.logger.Error("agent", "generation failed", map[string]interface{}{
			"session_id": req.SessionID,
			"mode":       string(routing.Mode),
			"error":      err.Error(),
		})
		answer := a.errorAnswer("Произошла ошибка при формировании ответа.", analysis, started)
		answer.Mode = routing.Mode
		answer.Stage = routing.Stage
		a.record(ctx, mem, req, answer, nil)
		return answer, nil
	}

	formatted := a.formatter.FormatAnswer(generated.Answer, routing.Mode, routing.Confidence.Level, 0)

	answer := &Answer{
		Status:              StatusSuccess,
		Answer:              formatted,
		Sources:             sourcesFromBlocks(blocks),
		BlocksUsed:          len(blocks),
		Mode:                routing.Mode,
		Stage:               routing.Stage,
		RuleID:              routing.RuleID,
		Reason:              routing.Reason,
		ConfidenceScore:     routing.Confidence.Score,
		ConfidenceLevel:     routing.Confidence.Level,
		AdjustedByStage:     routing.AdjustedByStage,
		StateAnalysis:       analysis,
		FeedbackPrompt:      feedbackPromptFor(analysis),
		ConversationContext: conversationContext,
		Timestamp:           time.Now().UTC(),
		ProcessingTime:      time.Since(started),
	}

	confidence := routing.Confidence.Score
	a.record(ctx, mem, req, answer, &confidence)

	a.logger.Info("agent", "turn answered", map[string]interface{}{
		"session_id":       req.SessionID,
		"mode":             string(routing.Mode),
		"rule_id":          routing.RuleID,
		"confidence":       routing.Confidence.Score,
		"confidence_level": string(routing.Confidence.Level),
		"blocks_used":      len(blocks),
		"elapsed":          time.Since(started).String(),
	})
	return answer, nil
}

func (a *AdaptiveAnswerer) classify(ctx context.Context, query string, mem *memory.ConversationMemory) *policy.StateAnalysis {
	if a.classifier == nil {
		return nil
	}
	history := make([]string, 0, a.cfg.HistoryDepth)
	for _, turn := range mem.LastTurns(a.cfg.HistoryDepth) {
		history = append(history, turn.UserInput)
	}
	analysis, err := a.classifier.Classify(ctx, query, history)
	if err != nil {
		a.logger.Warn("agent", "state classification failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return analysis
}

// record stores the exchange in conversation memory. A failed durable write
// goes to the retry queue; the in-process turn is already in place either way.
func (a *AdaptiveAnswerer) record(ctx context.Context, mem *memory.ConversationMemory, req Request, answer *Answer, confidence *float64) {
	input := memory.TurnInput{
		UserInput:   req.Query,
		BotResponse: answer.Answer,
		Mode:        string(answer.Mode),
		Confidence:  confidence,
		BlocksUsed:  answer.BlocksUsed,
		Concepts:    conceptsFromSources(answer.Sources),
	}
	if answer.StateAnalysis != nil {
		input.UserState = string(answer.StateAnalysis.PrimaryState)
	}

	turn, err := mem.AddTurn(ctx, input)
	if err == nil {
		return
	}

	a.logger.Warn("agent", "durable turn write failed", map[string]interface{}{
		"session_id":  req.SessionID,
		"turn_number": turn.TurnNumber,
		"error":       err.Error(),
	})
	if a.retryQueue == nil {
		return
	}
	if qErr := a.retryQueue.Enqueue(ctx, req.SessionID, turn, nil); qErr != nil {
		a.logger.Error("agent", "failed to queue turn for replay", map[string]interface{}{
			"session_id":  req.SessionID,
			"turn_number": turn.TurnNumber,
			"error":       qErr.Error(),
		})
	}
}

func (a *AdaptiveAnswerer) partialAnswer(analysis *policy.StateAnalysis, routing policy.RoutingResult, conversationContext string, started time.Time) *Answer {
	return &Answer{
		Status:              StatusPartial,
		Answer:              noMaterialAnswer,
		Mode:                routing.Mode,
		Stage:               routing.Stage,
		RuleID:              routing.RuleID,
		Reason:              routing.Reason,
		ConfidenceScore:     routing.Confidence.Score,
		ConfidenceLevel:     routing.Confidence.Level,
		AdjustedByStage:     routing.AdjustedByStage,
		StateAnalysis:       analysis,
		FeedbackPrompt:      rephrasePrompt,
		ConversationContext: conversationContext,
		Timestamp:           time.Now().UTC(),
		ProcessingTime:      time.Since(started),
	}
}

func (a *AdaptiveAnswerer) errorAnswer(message string, analysis *policy.StateAnalysis, started time.Time) *Answer {
	return &Answer{
		Status:         StatusError,
		Answer:         message,
		StateAnalysis:  analysis,
		Timestamp:      time.Now().UTC(),
		ProcessingTime: time.Since(started),
	}
}

// stateContext renders the classifier outcome as an extra system prompt
// section so generation adapts to the user's state.
func stateContext(analysis *policy.StateAnalysis) string {
	if analysis == nil {
		return ""
	}
	recommendation := "Отвечай в своём обычном стиле"
	if len(analysis.Recommendations) > 0 {
		recommendation = analysis.Recommendations[0]
	}
	return fmt.Sprintf(`КОНТЕКСТ ПОЛЬЗОВАТЕЛЯ:
- Текущее состояние: %s
- Эмоциональный тон: %s
- Глубина вовлечения: %s

РЕКОМЕНДАЦИЯ ПО ОТВЕТУ:
%s

Адаптируй свой ответ к состоянию пользователя.`,
		analysis.PrimaryState, analysis.EmotionalTone, analysis.Depth, recommendation)
}

func sourcesFromBlocks(blocks []retrieval.ScoredBlock) []Source {
	sources := make([]Source, 0, len(blocks))
	for _, b := range blocks {
		sources = append(sources, Source{
			BlockID:         b.Block.ID,
			Title:           b.Block.Title,
			Summary:         b.Block.Summary,
			ComplexityScore: b.Block.ComplexityScore,
		})
	}
	return sources
}

func conceptsFromSources(sources []Source) []string {
	if len(sources) == 0 {
		return nil
	}
	concepts := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.Title != "" {
			concepts = append(concepts, s.Title)
		}
	}
	return concepts
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
