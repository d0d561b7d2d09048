package policy

// UserState labels produced by the state classifier. The engine only reads
// them; classification itself happens upstream.
type UserState string

const (
	StateUnaware      UserState = "unaware"
	StateCurious      UserState = "curious"
	StateOverwhelmed  UserState = "overwhelmed"
	StateResistant    UserState = "resistant"
	StateConfused     UserState = "confused"
	StateCommitted    UserState = "committed"
	StatePracticing   UserState = "practicing"
	StateStagnant     UserState = "stagnant"
	StateBreakthrough UserState = "breakthrough"
	StateIntegrated   UserState = "integrated"
)

// StateAnalysis is the structured output of the state classifier.
type StateAnalysis struct {
	PrimaryState    UserState
	Confidence      float64
	EmotionalTone   string
	Depth           string // "surface" | "medium" | "deep"
	SecondaryStates []UserState
	Recommendations []string
}
