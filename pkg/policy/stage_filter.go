package policy

import (
	"adaptive-dialogue-be/pkg/retrieval"
)

// StageFilter limits modes and retrieved material to what the user's current
// stage can absorb. Allowed mode sets are nested: every deeper stage keeps
// everything the shallower stages allow.
type StageFilter struct {
	allowedModes   map[Stage]map[Mode]bool
	complexityCaps map[Stage]float64
	minBlocks      map[Stage]int
}

func NewStageFilter() *StageFilter {
	allowed := map[Stage][]Mode{
		StageSurface:     {ModePresence, ModeClarification, ModeValidation},
		StageAwareness:   {ModePresence, ModeClarification, ModeValidation, ModeThinking},
		StageExploration: {ModePresence, ModeClarification, ModeValidation, ModeThinking, ModeIntervention},
		StageIntegration: {ModePresence, ModeClarification, ModeValidation, ModeThinking, ModeIntervention, ModeIntegration},
	}

	modes := make(map[Stage]map[Mode]bool, len(allowed))
	for stage, list := range allowed {
		set := make(map[Mode]bool, len(list))
		for _, m := range list {
			set[m] = true
		}
		modes[stage] = set
	}

	return &StageFilter{
		allowedModes: modes,
		complexityCaps: map[Stage]float64{
			StageSurface:     0.45,
			StageAwareness:   0.65,
			StageExploration: 0.85,
			StageIntegration: 1.00,
		},
		minBlocks: map[Stage]int{
			StageSurface:     3,
			StageAwareness:   3,
			StageExploration: 4,
			StageIntegration: 5,
		},
	}
}

func (f *StageFilter) normalize(stage Stage) Stage {
	if !stage.Valid() {
		return StageSurface
	}
	return stage
}

// IsModeAllowed reports whether the mode may be used at the given stage.
// Unknown stages are treated as surface.
func (f *StageFilter) IsModeAllowed(mode Mode, stage Stage) bool {
	return f.allowedModes[f.normalize(stage)][mode]
}

// AllowedModes lists the modes reachable at the given stage.
func (f *StageFilter) AllowedModes(stage Stage) []Mode {
	set := f.allowedModes[f.normalize(stage)]
	modes := make([]Mode, 0, len(set))
	for _, m := range []Mode{ModePresence, ModeClarification, ModeValidation, ModeThinking, ModeIntervention, ModeIntegration} {
		if set[m] {
			modes = append(modes, m)
		}
	}
	return modes
}

// ComplexityCap returns the maximum block complexity the stage tolerates.
func (f *StageFilter) ComplexityCap(stage Stage) float64 {
	return f.complexityCaps[f.normalize(stage)]
}

// FilterBlocks drops blocks whose complexity exceeds the stage cap, but never
// starves generation: if the cap removes everything, the original top-ranked
// block is kept alone; if the strict pass keeps some blocks but fewer than the
// stage minimum, it is backfilled with over-cap blocks in their original
// ranked order until the minimum is reached or the input runs out.
func (f *StageFilter) FilterBlocks(blocks []retrieval.ScoredBlock, stage Stage) []retrieval.ScoredBlock {
	if len(blocks) <= 1 {
		return blocks
	}

	stage = f.normalize(stage)
	maxComplexity := f.complexityCaps[stage]
	minCount := f.minBlocks[stage]

	kept := make([]retrieval.ScoredBlock, 0, len(blocks))
	overflow := make([]retrieval.ScoredBlock, 0)
	for _, b := range blocks {
		if b.Block.ComplexityScore <= maxComplexity {
			kept = append(kept, b)
		} else {
			overflow = append(overflow, b)
		}
	}

	if len(kept) == 0 {
		return blocks[:1]
	}

	for len(kept) < minCount && len(overflow) > 0 {
		kept = append(kept, overflow[0])
		overflow = overflow[1:]
	}
	return kept
}
