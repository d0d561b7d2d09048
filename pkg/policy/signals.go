package policy

import (
	"strings"

	"adaptive-dialogue-be/pkg/retrieval"
)

// Signals is the normalized per-turn signal bundle feeding routing. It is
// produced fresh each turn and never persisted.
type Signals struct {
	LocalSimilarity  float64
	VoyageConfidence float64
	DeltaTop1Top2    float64
	StateMatch       float64
	QuestionClarity  float64

	ExplicitAsk            bool
	AskType                string // "action" | "reflection"
	EmotionLoad            string // "high" | "low"
	Contradiction          bool
	ValidationNeeded       bool
	ThinkingDue            bool
	InterventionCooldownOK bool
	InsightSignal          bool

	// Merged in by DecisionGate before table evaluation.
	Confidence float64
	UserStage  Stage
}

// floatSignal returns a named float component for weighted scoring.
// Unknown names score zero.
func (s Signals) floatSignal(name string) float64 {
	switch name {
	case "local_similarity":
		return s.LocalSimilarity
	case "voyage_confidence":
		return s.VoyageConfidence
	case "delta_top1_top2":
		return s.DeltaTop1Top2
	case "state_match":
		return s.StateMatch
	case "question_clarity":
		return s.QuestionClarity
	default:
		return 0
	}
}

var defaultExplicitAskPhrases = []string{
	"что делать",
	"как сделать",
	"с чего начать",
	"что мне делать",
}

var highLoadStates = map[UserState]bool{
	StateOverwhelmed: true,
	StateResistant:   true,
	StateStagnant:    true,
}

// SignalDetector turns a raw user message, retrieval results and an optional
// state analysis into a Signals bundle. Pure and deterministic.
type SignalDetector struct {
	explicitAskPhrases []string
}

func NewSignalDetector(explicitAskPhrases []string) *SignalDetector {
	if len(explicitAskPhrases) == 0 {
		explicitAskPhrases = defaultExplicitAskPhrases
	}
	return &SignalDetector{explicitAskPhrases: explicitAskPhrases}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Detect prepares normalized signals for DecisionGate routing.
func (d *SignalDetector) Detect(query string, retrieved []retrieval.ScoredBlock, analysis *StateAnalysis) Signals {
	var top1, top2 float64
	if len(retrieved) > 0 {
		top1 = retrieved[0].Score
	}
	if len(retrieved) > 1 {
		top2 = retrieved[1].Score
	}

	var primary UserState
	var emotionalTone string
	var stateConfidence float64
	if analysis != nil {
		primary = analysis.PrimaryState
		emotionalTone = strings.ToLower(analysis.EmotionalTone)
		stateConfidence = analysis.Confidence
	}

	lowered := strings.ToLower(query)
	explicitAsk := false
	for _, phrase := range d.explicitAskPhrases {
		if strings.Contains(lowered, phrase) {
			explicitAsk = true
			break
		}
	}

	askType := "reflection"
	if explicitAsk {
		askType = "action"
	}

	emotionLoad := "low"
	for _, token := range []string{"overwhelm", "panic", "anxiety", "distress"} {
		if strings.Contains(emotionalTone, token) {
			emotionLoad = "high"
			break
		}
	}
	if highLoadStates[primary] {
		emotionLoad = "high"
	}

	questionClarity := 0.5
	if len(strings.Fields(query)) >= 4 {
		questionClarity = 1.0
	}

	return Signals{
		LocalSimilarity: clip01(top1),
		// Placeholder until the reranker reports its own confidence; mirrors
		// local similarity so the weight table stays fully populated.
		VoyageConfidence:       clip01(top1),
		DeltaTop1Top2:          clip01(top1 - top2),
		StateMatch:             clip01(stateConfidence),
		QuestionClarity:        questionClarity,
		ExplicitAsk:            explicitAsk,
		AskType:                askType,
		EmotionLoad:            emotionLoad,
		Contradiction:          false,
		ValidationNeeded:       primary == StateConfused || primary == StateOverwhelmed,
		ThinkingDue:            false,
		InterventionCooldownOK: true,
		InsightSignal:          primary == StateBreakthrough || primary == StateIntegrated,
	}
}

// ResolveStage resolves the user stage: the working-state stage wins when
// known; otherwise the analysis depth decides. Total: always returns a valid
// stage.
func ResolveStage(workingStage Stage, analysis *StateAnalysis) Stage {
	if workingStage.Valid() {
		return workingStage
	}

	depth := ""
	if analysis != nil {
		depth = strings.ToLower(analysis.Depth)
	}

	switch {
	case strings.Contains(depth, "deep"):
		return StageExploration
	case strings.Contains(depth, "medium"):
		return StageAwareness
	default:
		return StageSurface
	}
}
