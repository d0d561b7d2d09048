package policy

import (
	"testing"

	"adaptive-dialogue-be/pkg/retrieval"
)

func scoredBlocks(complexities ...float64) []retrieval.ScoredBlock {
	blocks := make([]retrieval.ScoredBlock, 0, len(complexities))
	for i, c := range complexities {
		blocks = append(blocks, retrieval.ScoredBlock{
			Block: retrieval.Block{
				ID:              string(rune('a' + i)),
				ComplexityScore: c,
			},
			Score: 1.0 - float64(i)*0.1,
		})
	}
	return blocks
}

func TestStageFilterAllowedModesAreNested(t *testing.T) {
	filter := NewStageFilter()

	stages := []Stage{StageSurface, StageAwareness, StageExploration, StageIntegration}
	for i := 1; i < len(stages); i++ {
		shallow := filter.AllowedModes(stages[i-1])
		for _, m := range shallow {
			if !filter.IsModeAllowed(m, stages[i]) {
				t.Errorf("mode %s allowed at %s but not at deeper %s", m, stages[i-1], stages[i])
			}
		}
	}
}

func TestStageFilterModeGating(t *testing.T) {
	filter := NewStageFilter()

	tests := []struct {
		mode  Mode
		stage Stage
		want  bool
	}{
		{ModePresence, StageSurface, true},
		{ModeClarification, StageSurface, true},
		{ModeValidation, StageSurface, true},
		{ModeThinking, StageSurface, false},
		{ModeThinking, StageAwareness, true},
		{ModeIntervention, StageAwareness, false},
		{ModeIntervention, StageExploration, true},
		{ModeIntegration, StageExploration, false},
		{ModeIntegration, StageIntegration, true},
	}

	for _, tt := range tests {
		if got := filter.IsModeAllowed(tt.mode, tt.stage); got != tt.want {
			t.Errorf("IsModeAllowed(%s, %s) = %v, want %v", tt.mode, tt.stage, got, tt.want)
		}
	}
}

func TestStageFilterUnknownStageTreatedAsSurface(t *testing.T) {
	filter := NewStageFilter()

	if filter.IsModeAllowed(ModeIntervention, Stage("unknown")) {
		t.Error("intervention should not be allowed for an unknown stage")
	}
	if got := filter.ComplexityCap(Stage("unknown")); got != 0.45 {
		t.Errorf("ComplexityCap(unknown) = %v, want 0.45", got)
	}
}

func TestStageFilterFilterBlocks(t *testing.T) {
	filter := NewStageFilter()

	t.Run("keeps blocks under the cap", func(t *testing.T) {
		got := filter.FilterBlocks(scoredBlocks(0.2, 0.3, 0.4, 0.9), StageSurface)
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
		for _, b := range got {
			if b.Block.ComplexityScore > 0.45 {
				t.Errorf("kept over-cap block %v", b.Block.ComplexityScore)
			}
		}
	})

	t.Run("all over cap keeps only the top ranked block", func(t *testing.T) {
		got := filter.FilterBlocks(scoredBlocks(0.9, 0.8), StageSurface)
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
		if got[0].Block.ID != "a" {
			t.Errorf("kept block %q, want the original top-ranked one", got[0].Block.ID)
		}
	})

	t.Run("backfills to the stage minimum preserving ranked order", func(t *testing.T) {
		got := filter.FilterBlocks(scoredBlocks(0.9, 0.3, 0.95, 0.88, 0.2), StageExploration)
		// Strict pass keeps 0.3 and 0.2; exploration minimum is 4, so the
		// first two over-cap blocks backfill in their original order.
		if len(got) != 4 {
			t.Fatalf("len = %d, want 4", len(got))
		}
		wantIDs := []string{"b", "e", "a", "c"}
		for i, id := range wantIDs {
			if got[i].Block.ID != id {
				t.Errorf("got[%d].ID = %q, want %q", i, got[i].Block.ID, id)
			}
		}
	})

	t.Run("single block returned unchanged", func(t *testing.T) {
		got := filter.FilterBlocks(scoredBlocks(0.99), StageSurface)
		if len(got) != 1 {
			t.Fatalf("len = %d, want 1", len(got))
		}
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		if got := filter.FilterBlocks(nil, StageSurface); len(got) != 0 {
			t.Fatalf("len = %d, want 0", len(got))
		}
	})

	t.Run("integration passes everything through", func(t *testing.T) {
		got := filter.FilterBlocks(scoredBlocks(0.9, 0.95, 1.0), StageIntegration)
		if len(got) != 3 {
			t.Fatalf("len = %d, want 3", len(got))
		}
	})
}
