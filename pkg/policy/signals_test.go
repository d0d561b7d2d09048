package policy

import (
	"testing"

	"adaptive-dialogue-be/pkg/retrieval"
)

func TestSignalDetectorExplicitAsk(t *testing.T) {
	detector := NewSignalDetector(nil)

	tests := []struct {
		name     string
		query    string
		wantAsk  bool
		wantType string
	}{
		{"action phrase", "Не понимаю, что делать дальше", true, "action"},
		{"action phrase uppercase", "ЧТО МНЕ ДЕЛАТЬ в этой ситуации?", true, "action"},
		{"start phrase", "Подскажите, с чего начать", true, "action"},
		{"plain reflection", "Мне сегодня тяжело на работе", false, "reflection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detector.Detect(tt.query, nil, nil)
			if got.ExplicitAsk != tt.wantAsk {
				t.Errorf("ExplicitAsk = %v, want %v", got.ExplicitAsk, tt.wantAsk)
			}
			if got.AskType != tt.wantType {
				t.Errorf("AskType = %q, want %q", got.AskType, tt.wantType)
			}
		})
	}
}

func TestSignalDetectorRetrievalSignals(t *testing.T) {
	detector := NewSignalDetector(nil)

	retrieved := []retrieval.ScoredBlock{
		{Block: retrieval.Block{ID: "a"}, Score: 0.8},
		{Block: retrieval.Block{ID: "b"}, Score: 0.5},
	}
	got := detector.Detect("Расскажи про мои отношения с коллегами", retrieved, nil)

	if got.LocalSimilarity != 0.8 {
		t.Errorf("LocalSimilarity = %v, want 0.8", got.LocalSimilarity)
	}
	if diff := got.DeltaTop1Top2 - 0.3; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("DeltaTop1Top2 = %v, want 0.3", got.DeltaTop1Top2)
	}
	if got.QuestionClarity != 1.0 {
		t.Errorf("QuestionClarity = %v, want 1.0 for a multi-word query", got.QuestionClarity)
	}
}

func TestSignalDetectorStateSignals(t *testing.T) {
	detector := NewSignalDetector(nil)

	t.Run("overwhelmed raises load and validation need", func(t *testing.T) {
		analysis := &StateAnalysis{PrimaryState: StateOverwhelmed, Confidence: 0.9}
		got := detector.Detect("всё навалилось", nil, analysis)
		if got.EmotionLoad != "high" {
			t.Errorf("EmotionLoad = %q, want high", got.EmotionLoad)
		}
		if !got.ValidationNeeded {
			t.Error("ValidationNeeded = false, want true")
		}
		if got.StateMatch != 0.9 {
			t.Errorf("StateMatch = %v, want 0.9", got.StateMatch)
		}
	})

	t.Run("breakthrough raises insight", func(t *testing.T) {
		analysis := &StateAnalysis{PrimaryState: StateBreakthrough, Confidence: 0.8}
		got := detector.Detect("кажется я понял в чём дело", nil, analysis)
		if !got.InsightSignal {
			t.Error("InsightSignal = false, want true")
		}
		if got.EmotionLoad != "low" {
			t.Errorf("EmotionLoad = %q, want low", got.EmotionLoad)
		}
	})

	t.Run("cooldown stub is always open", func(t *testing.T) {
		got := detector.Detect("что делать", nil, nil)
		if !got.InterventionCooldownOK {
			t.Error("InterventionCooldownOK = false, want true")
		}
	})
}

func TestResolveStage(t *testing.T) {
	tests := []struct {
		name         string
		workingStage Stage
		analysis     *StateAnalysis
		want         Stage
	}{
		{"working stage wins", StageIntegration, &StateAnalysis{Depth: "deep"}, StageIntegration},
		{"deep analysis maps to exploration", Stage(""), &StateAnalysis{Depth: "deep"}, StageExploration},
		{"medium analysis maps to awareness", Stage(""), &StateAnalysis{Depth: "medium"}, StageAwareness},
		{"shallow analysis maps to surface", Stage(""), &StateAnalysis{Depth: "shallow"}, StageSurface},
		{"nothing known maps to surface", Stage(""), nil, StageSurface},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStage(tt.workingStage, tt.analysis); got != tt.want {
				t.Errorf("ResolveStage = %s, want %s", got, tt.want)
			}
		})
	}
}
