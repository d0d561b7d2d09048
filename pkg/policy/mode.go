package policy

// Mode is one of the six bounded response behaviors the engine can select.
type Mode string

const (
	ModePresence      Mode = "PRESENCE"
	ModeClarification Mode = "CLARIFICATION"
	ModeValidation    Mode = "VALIDATION"
	ModeThinking      Mode = "THINKING"
	ModeIntervention  Mode = "INTERVENTION"
	ModeIntegration   Mode = "INTEGRATION"
)

// Stage is the coarse measure of dialogue depth. Stages only deepen:
// surface -> awareness -> exploration -> integration.
type Stage string

const (
	StageSurface     Stage = "surface"
	StageAwareness   Stage = "awareness"
	StageExploration Stage = "exploration"
	StageIntegration Stage = "integration"
)

var stageOrder = map[Stage]int{
	StageSurface:     0,
	StageAwareness:   1,
	StageExploration: 2,
	StageIntegration: 3,
}

// Depth returns the ordinal position of the stage; unknown stages map to
// surface.
func (s Stage) Depth() int {
	if d, ok := stageOrder[s]; ok {
		return d
	}
	return 0
}

// Valid reports whether the stage is one of the four known stages.
func (s Stage) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}
