package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"adaptive-dialogue-be/pkg/embedding"
)

const responsePreviewChars = 200

// Config bounds the three memory tiers.
type Config struct {
	HistoryDepth      int
	MaxContextSize    int
	MaxTurns          int
	SummaryInterval   int
	SummaryMaxChars   int
	SemanticEnabled   bool
	SemanticTopK      int
	SemanticMinScore  float64
	SemanticMaxChars  int
	SemanticSkipLastN int
}

func DefaultConfig() Config {
	return Config{
		HistoryDepth:      3,
		MaxContextSize:    2000,
		MaxTurns:          1000,
		SummaryInterval:   5,
		SummaryMaxChars:   500,
		SemanticEnabled:   true,
		SemanticTopK:      3,
		SemanticMinScore:  0.7,
		SemanticMaxChars:  1000,
		SemanticSkipLastN: 5,
	}
}

// AdaptiveContext is the tiered conversational context for one question.
type AdaptiveContext struct {
	ShortTerm string
	Semantic  string
	Summary   string
}

// Summarizer compacts recent turns into a short synopsis.
type Summarizer interface {
	Summarize(ctx context.Context, turns []Turn) (string, error)
}

// TurnInput carries the fields of a new exchange; the memory assigns the
// turn number and timestamp.
type TurnInput struct {
	UserInput   string
	BotResponse string
	Mode        string
	Confidence  *float64
	BlocksUsed  int
	Concepts    []string
	UserState   string
}

// ConversationMemory keeps one session's dialogue history in three tiers:
// raw recent turns, semantic search over older turns and a periodic summary.
// All mutation serializes on a per-session mutex; the policy engine itself
// stays stateless.
type ConversationMemory struct {
	sessionID string
	userID    string

	mu             sync.Mutex
	turns          []Turn
	lastTurnNumber int
	workingState   *WorkingState
	summary        string

	store      Store
	embedder   embedding.EmbeddingProvider
	summarizer Summarizer
	cfg        Config
}

func NewConversationMemory(sessionID, userID string, store Store, embedder embedding.EmbeddingProvider, summarizer Summarizer, cfg Config) *ConversationMemory {
	if cfg.HistoryDepth <= 0 {
		cfg = DefaultConfig()
	}
	return &ConversationMemory{
		sessionID:  sessionID,
		userID:     userID,
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		cfg:        cfg,
	}
}

func (m *ConversationMemory) SessionID() string { return m.sessionID }

// Hydrate loads durable state into memory. Returns false when the store has
// nothing for this session.
func (m *ConversationMemory) Hydrate(ctx context.Context) (bool, error) {
	data, err := m.store.LoadSession(ctx, m.sessionID)
	if err != nil {
		return false, fmt.Errorf("load session %s: %w", m.sessionID, err)
	}
	if data == nil {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = data.Turns
	m.summary = data.Summary
	m.workingState = WorkingStateFromMap(data.WorkingState)
	m.lastTurnNumber = 0
	if n := len(data.Turns); n > 0 {
		m.lastTurnNumber = data.Turns[n-1].TurnNumber
	}
	return true, nil
}

// AddTurn appends an exchange, stores its embedding, refreshes the summary on
// the configured interval and prunes overflow. The turn always lands in
// memory; a returned error means only the durable write failed and should be
// retried by the caller.
func (m *ConversationMemory) AddTurn(ctx context.Context, input TurnInput) (Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastTurnNumber++
	turn := Turn{
		TurnNumber:  m.lastTurnNumber,
		UserInput:   input.UserInput,
		BotResponse: input.BotResponse,
		Mode:        input.Mode,
		Timestamp:   time.Now().UTC(),
		Confidence:  input.Confidence,
		BlocksUsed:  input.BlocksUsed,
		Concepts:    input.Concepts,
		UserState:   input.UserState,
	}
	m.turns = append(m.turns, turn)

	var vector []float32
	if m.cfg.SemanticEnabled && m.embedder != nil {
		text := input.UserInput + " " + preview(input.BotResponse, responsePreviewChars)
		if resp, err := m.embedder.Generate(text, "RETRIEVAL_DOCUMENT"); err == nil && resp != nil {
			vector = resp.Embedding.Values
		}
	}

	if m.summarizer != nil && m.cfg.SummaryInterval > 0 &&
		turn.TurnNumber >= 5 && turn.TurnNumber%m.cfg.SummaryInterval == 0 {
		m.refreshSummaryLocked(ctx)
	}

	var persistErr error
	if err := m.store.SaveTurn(ctx, m.sessionID, turn, vector); err != nil {
		persistErr = fmt.Errorf("save turn %d: %w", turn.TurnNumber, err)
	}

	m.pruneLocked(ctx)
	return turn, persistErr
}

// refreshSummaryLocked regenerates the summary from the last 10 turns.
func (m *ConversationMemory) refreshSummaryLocked(ctx context.Context) {
	recent := m.lastTurnsLocked(10)
	summary, err := m.summarizer.Summarize(ctx, recent)
	if err != nil || summary == "" {
		return
	}
	if m.cfg.SummaryMaxChars > 0 {
		summary = preview(summary, m.cfg.SummaryMaxChars)
	}
	m.summary = summary
	// Summary staleness is tolerable; the next interval rewrites it anyway.
	_ = m.store.UpdateSummary(ctx, m.sessionID, summary)
}

func (m *ConversationMemory) pruneLocked(ctx context.Context) {
	if m.cfg.MaxTurns <= 0 || len(m.turns) <= m.cfg.MaxTurns {
		return
	}
	overflow := len(m.turns) - m.cfg.MaxTurns
	m.turns = m.turns[overflow:]
	floor := m.turns[0].TurnNumber
	_ = m.store.DeleteTurnsBelow(ctx, m.sessionID, floor)
}

// AddFeedback attaches feedback to an existing turn in place; index -1 means
// the last turn. The mutated turn is re-persisted, no new turn is created.
func (m *ConversationMemory) AddFeedback(ctx context.Context, turnIndex int, feedback string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turnIndex == -1 {
		turnIndex = len(m.turns) - 1
	}
	if turnIndex < 0 || turnIndex >= len(m.turns) {
		return fmt.Errorf("turn index %d out of range (have %d turns)", turnIndex, len(m.turns))
	}

	m.turns[turnIndex].UserFeedback = feedback
	m.turns[turnIndex].UserRating = rating

	if err := m.store.SaveTurn(ctx, m.sessionID, m.turns[turnIndex], nil); err != nil {
		return fmt.Errorf("persist feedback for turn %d: %w", m.turns[turnIndex].TurnNumber, err)
	}
	return nil
}

func (m *ConversationMemory) WorkingState() *WorkingState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workingState
}

func (m *ConversationMemory) SetWorkingState(ctx context.Context, state *WorkingState) error {
	m.mu.Lock()
	m.workingState = state
	m.mu.Unlock()

	if state == nil {
		return nil
	}
	return m.store.UpdateWorkingState(ctx, m.sessionID, state.ToMap())
}

func (m *ConversationMemory) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

func (m *ConversationMemory) TurnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

func (m *ConversationMemory) lastTurnsLocked(n int) []Turn {
	if n <= 0 || len(m.turns) == 0 {
		return nil
	}
	if n > len(m.turns) {
		n = len(m.turns)
	}
	out := make([]Turn, n)
	copy(out, m.turns[len(m.turns)-n:])
	return out
}

func (m *ConversationMemory) LastTurns(n int) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTurnsLocked(n)
}

// GetAdaptiveContext applies the tier policy: short dialogues get raw history
// only, mid-length dialogues add semantic recall, long ones add the summary.
func (m *ConversationMemory) GetAdaptiveContext(ctx context.Context, question string) AdaptiveContext {
	m.mu.Lock()
	total := len(m.turns)
	summary := m.summary
	m.mu.Unlock()

	result := AdaptiveContext{}

	if total <= 5 {
		result.ShortTerm = m.GetContextForLLM(total, m.cfg.MaxContextSize)
		return result
	}

	result.ShortTerm = m.GetContextForLLM(m.cfg.HistoryDepth, m.cfg.MaxContextSize)
	result.Semantic = m.semanticContext(ctx, question)
	if total > 20 {
		result.Summary = summary
	}
	return result
}

// FormatContext flattens the tiers into one LLM-ready string, broadest
// context first.
func (m *ConversationMemory) FormatContext(actx AdaptiveContext) string {
	sections := make([]string, 0, 3)
	if actx.Summary != "" {
		sections = append(sections, "РЕЗЮМЕ ДИАЛОГА:\n"+actx.Summary)
	}
	if actx.Semantic != "" {
		sections = append(sections, actx.Semantic)
	}
	if actx.ShortTerm != "" {
		sections = append(sections, actx.ShortTerm)
	}
	return strings.Join(sections, "\n")
}

func (m *ConversationMemory) semanticContext(ctx context.Context, question string) string {
	if !m.cfg.SemanticEnabled || m.embedder == nil {
		return ""
	}

	resp, err := m.embedder.Generate(question, "RETRIEVAL_QUERY")
	if err != nil || resp == nil {
		return ""
	}

	m.mu.Lock()
	maxTurn := m.lastTurnNumber - m.cfg.SemanticSkipLastN
	m.mu.Unlock()
	if maxTurn <= 0 {
		return ""
	}

	matches, err := m.store.SearchSimilarTurns(ctx, m.sessionID, resp.Embedding.Values, m.cfg.SemanticTopK, m.cfg.SemanticMinScore, maxTurn)
	if err != nil || len(matches) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("РЕЛЕВАНТНЫЕ ПРОШЛЫЕ ОБМЕНЫ:\n\n")
	currentLen := len([]rune(b.String()))

	for _, match := range matches {
		entry := fmt.Sprintf("[Сходство: %.2f] Обмен #%d:\n  Пользователь: %s\n  Бот: %s\n",
			match.Similarity, match.TurnNumber, match.UserInput, match.BotResponsePreview)
		if match.UserState != "" {
			entry += "  Состояние: " + match.UserState + "\n"
		}
		if len(match.Concepts) > 0 {
			limit := len(match.Concepts)
			if limit > 3 {
				limit = 3
			}
			entry += "  Концепты: " + strings.Join(match.Concepts[:limit], ", ") + "\n"
		}
		entry += "\n"

		entryLen := len([]rune(entry))
		if m.cfg.SemanticMaxChars > 0 && currentLen+entryLen > m.cfg.SemanticMaxChars {
			break
		}
		b.WriteString(entry)
		currentLen += entryLen
	}

	if currentLen == len([]rune("РЕЛЕВАНТНЫЕ ПРОШЛЫЕ ОБМЕНЫ:\n\n")) {
		return ""
	}
	return b.String()
}

// GetContextForLLM renders the most recent n turns within maxChars. Turns are
// dropped from the oldest included one forward; the newest turn always
// survives, clipped if it alone exceeds the budget. Output is oldest-first.
func (m *ConversationMemory) GetContextForLLM(n, maxChars int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.lastTurnsLocked(n)
	if len(recent) == 0 {
		return ""
	}
	if maxChars <= 0 {
		maxChars = m.cfg.MaxContextSize
	}

	header := "ИСТОРИЯ ДИАЛОГА (последние обороты):\n\n"
	currentLen := len([]rune(header))

	entries := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		turn := recent[i]
		entry := fmt.Sprintf("Обмен #%d:\n  Пользователь: %s\n  Бот: %s\n",
			turn.TurnNumber, turn.UserInput, preview(turn.BotResponse, responsePreviewChars))
		if turn.UserState != "" {
			entry += "  Состояние: " + turn.UserState + "\n"
		}
		entry += "\n"

		entryLen := len([]rune(entry))
		if currentLen+entryLen > maxChars {
			if len(entries) == 0 {
				// Even the newest turn alone busts the budget; keep a clipped
				// version instead of returning nothing.
				allowed := maxChars - currentLen
				if allowed > 3 {
					entries = append(entries, preview(entry, allowed))
				}
			}
			break
		}
		entries = append(entries, entry)
		currentLen += entryLen
	}

	var b strings.Builder
	b.WriteString(header)
	for i := len(entries) - 1; i >= 0; i-- {
		b.WriteString(entries[i])
	}
	return b.String()
}

// PrimaryInterests returns the top five concepts by mention frequency.
func (m *ConversationMemory) PrimaryInterests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[string]int{}
	for _, turn := range m.turns {
		for _, concept := range turn.Concepts {
			counts[concept]++
		}
	}

	concepts := make([]string, 0, len(counts))
	for c := range counts {
		concepts = append(concepts, c)
	}
	sort.Slice(concepts, func(i, j int) bool {
		if counts[concepts[i]] != counts[concepts[j]] {
			return counts[concepts[i]] > counts[concepts[j]]
		}
		return concepts[i] < concepts[j]
	})

	if len(concepts) > 5 {
		concepts = concepts[:5]
	}
	return concepts
}

// Challenges returns turns the user marked with negative feedback.
func (m *ConversationMemory) Challenges() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Turn
	for _, turn := range m.turns {
		if turn.UserFeedback == "negative" {
			out = append(out, turn)
		}
	}
	return out
}

// Breakthroughs returns turns with positive feedback rated 4 or higher.
func (m *ConversationMemory) Breakthroughs() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Turn
	for _, turn := range m.turns {
		if turn.UserFeedback == "positive" && turn.UserRating >= 4 {
			out = append(out, turn)
		}
	}
	return out
}

// SessionStats aggregates the history into key session metrics.
type SessionStats struct {
	TotalTurns       int
	PrimaryInterests []string
	NumChallenges    int
	NumBreakthroughs int
	AverageRating    float64
	LastInteraction  time.Time
}

// Stats summarizes the in-memory history. AverageRating counts only rated
// turns and is rounded to two decimals.
func (m *ConversationMemory) Stats() SessionStats {
	stats := SessionStats{
		PrimaryInterests: m.PrimaryInterests(),
		NumChallenges:    len(m.Challenges()),
		NumBreakthroughs: len(m.Breakthroughs()),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats.TotalTurns = len(m.turns)
	if len(m.turns) > 0 {
		stats.LastInteraction = m.turns[len(m.turns)-1].Timestamp
	}

	var sum, rated int
	for _, turn := range m.turns {
		if turn.UserRating > 0 {
			sum += turn.UserRating
			rated++
		}
	}
	if rated > 0 {
		stats.AverageRating = math.Round(float64(sum)/float64(rated)*100) / 100
	}
	return stats
}

// Clear resets turns, summary and working state but keeps the session usable
// under the same id.
func (m *ConversationMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.turns = nil
	m.summary = ""
	m.workingState = nil
	m.lastTurnNumber = 0
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, m.sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", m.sessionID, err)
	}
	return nil
}

// Purge erases the session and all durable artifacts; the session is not
// recreated.
func (m *ConversationMemory) Purge(ctx context.Context) error {
	m.mu.Lock()
	m.turns = nil
	m.summary = ""
	m.workingState = nil
	m.lastTurnNumber = 0
	m.mu.Unlock()

	if err := m.store.DeleteSession(ctx, m.sessionID); err != nil {
		return fmt.Errorf("purge session %s: %w", m.sessionID, err)
	}
	return nil
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
