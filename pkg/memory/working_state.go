package memory

import (
	"strings"

	"adaptive-dialogue-be/pkg/policy"
)

const (
	unknownValue     = "неопределено"
	defaultPhase     = "начало контакта"
	defaultDirection = "диагностика"
)

// phaseStages maps dialogue phases to stage-filter levels.
var phaseStages = map[string]policy.Stage{
	"начало контакта": policy.StageSurface,
	"осмысление":      policy.StageAwareness,
	"работа":          policy.StageExploration,
	"интеграция":      policy.StageIntegration,
}

// WorkingState is the current interpreted state of the user in the dialogue
// process. It is persisted with the session and updated as the dialogue
// deepens.
type WorkingState struct {
	DominantState   string
	Emotion         string
	Defense         string
	Phase           string
	Direction       string
	LastUpdatedTurn int
	ConfidenceLevel string
}

func NewWorkingState(dominantState, emotion string) *WorkingState {
	return &WorkingState{
		DominantState:   dominantState,
		Emotion:         emotion,
		Phase:           defaultPhase,
		Direction:       defaultDirection,
		ConfidenceLevel: "low",
	}
}

func (w *WorkingState) ToMap() map[string]interface{} {
	var defense interface{}
	if w.Defense != "" {
		defense = w.Defense
	}
	return map[string]interface{}{
		"dominant_state":    w.DominantState,
		"emotion":           w.Emotion,
		"defense":           defense,
		"phase":             w.Phase,
		"direction":         w.Direction,
		"last_updated_turn": w.LastUpdatedTurn,
		"confidence_level":  w.ConfidenceLevel,
	}
}

func stringField(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// WorkingStateFromMap restores a state from its map form. Missing fields get
// the same defaults a fresh state has, so round-tripping is stable.
func WorkingStateFromMap(data map[string]interface{}) *WorkingState {
	if data == nil {
		return nil
	}

	lastUpdated := 0
	switch v := data["last_updated_turn"].(type) {
	case int:
		lastUpdated = v
	case int64:
		lastUpdated = int(v)
	case float64:
		lastUpdated = int(v)
	}

	return &WorkingState{
		DominantState:   stringField(data, "dominant_state", unknownValue),
		Emotion:         stringField(data, "emotion", unknownValue),
		Defense:         stringField(data, "defense", ""),
		Phase:           stringField(data, "phase", defaultPhase),
		Direction:       stringField(data, "direction", defaultDirection),
		LastUpdatedTurn: lastUpdated,
		ConfidenceLevel: stringField(data, "confidence_level", "low"),
	}
}

// UserStage maps the dialogue phase to a stage-filter level. Unknown phases
// stay at surface.
func (w *WorkingState) UserStage() policy.Stage {
	if w == nil {
		return policy.StageSurface
	}
	if stage, ok := phaseStages[w.Phase]; ok {
		return stage
	}
	return policy.StageSurface
}

// ContextLine renders the state as a single labelled line for query building.
// Empty fields are omitted.
func (w *WorkingState) ContextLine() string {
	if w == nil {
		return ""
	}

	fields := []struct {
		label string
		value string
	}{
		{"состояние", w.DominantState},
		{"эмоция", w.Emotion},
		{"защита", w.Defense},
		{"фаза", w.Phase},
		{"направление", w.Direction},
		{"уверенность", w.ConfidenceLevel},
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.value != "" {
			parts = append(parts, f.label+": "+f.value)
		}
	}
	return strings.Join(parts, "; ")
}
