package policy

import (
	"testing"
)

func TestDecisionGateRoute(t *testing.T) {
	gate := NewDecisionGate(nil, nil, nil)

	t.Run("low signals clarify", func(t *testing.T) {
		got := gate.Route(uniformSignals(0.3), StageSurface, 5)
		if got.Mode != ModeClarification {
			t.Errorf("Mode = %s, want %s", got.Mode, ModeClarification)
		}
		if got.RuleID != 1 {
			t.Errorf("RuleID = %d, want 1", got.RuleID)
		}
		if got.Confidence.Level != ConfidenceLow {
			t.Errorf("Level = %s, want low", got.Confidence.Level)
		}
		if got.BlockCap != 2 {
			t.Errorf("BlockCap = %d, want 2", got.BlockCap)
		}
		if got.AdjustedByStage {
			t.Error("clarification is always stage-legal, AdjustedByStage must be false")
		}
	})

	t.Run("stage guard downgrades thinking at surface", func(t *testing.T) {
		signals := uniformSignals(0.6)
		signals.ThinkingDue = true

		got := gate.Route(signals, StageSurface, 5)
		if got.Mode != ModeClarification {
			t.Errorf("Mode = %s, want %s", got.Mode, ModeClarification)
		}
		if !got.AdjustedByStage {
			t.Error("AdjustedByStage = false, want true")
		}
		// The table decision is preserved for audit even after the downgrade.
		if got.RuleID != 7 {
			t.Errorf("RuleID = %d, want 7", got.RuleID)
		}
	})

	t.Run("thinking allowed from awareness on", func(t *testing.T) {
		signals := uniformSignals(0.6)
		signals.ThinkingDue = true

		got := gate.Route(signals, StageAwareness, 5)
		if got.Mode != ModeThinking {
			t.Errorf("Mode = %s, want %s", got.Mode, ModeThinking)
		}
		if got.AdjustedByStage {
			t.Error("AdjustedByStage = true, want false")
		}
	})

	t.Run("invalid stage treated as surface", func(t *testing.T) {
		signals := uniformSignals(0.9)
		signals.ExplicitAsk = true
		signals.AskType = "action"
		signals.InterventionCooldownOK = true

		got := gate.Route(signals, Stage(""), 5)
		if got.Stage != StageSurface {
			t.Errorf("Stage = %s, want surface", got.Stage)
		}
		if got.RuleID != 8 {
			t.Errorf("RuleID = %d, want 8", got.RuleID)
		}
	})

	t.Run("block cap follows confidence level", func(t *testing.T) {
		got := gate.Route(uniformSignals(0.9), StageIntegration, 7)
		if got.Confidence.Level != ConfidenceHigh {
			t.Fatalf("Level = %s, want high", got.Confidence.Level)
		}
		if got.BlockCap != 7 {
			t.Errorf("BlockCap = %d, want 7", got.BlockCap)
		}
	})
}
