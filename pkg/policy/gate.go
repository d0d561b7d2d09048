package policy

// RoutingResult is the final routing decision for one turn.
type RoutingResult struct {
	Mode            Mode
	Stage           Stage
	RuleID          int
	Reason          string
	Confidence      ConfidenceResult
	Forbid          []string
	BlockCap        int
	AdjustedByStage bool
}

// DecisionGate is the routing facade: it scores confidence, evaluates the
// decision table and applies the stage guard in one call.
type DecisionGate struct {
	scorer *ConfidenceScorer
	table  *DecisionTable
	filter *StageFilter
}

func NewDecisionGate(scorer *ConfidenceScorer, table *DecisionTable, filter *StageFilter) *DecisionGate {
	if scorer == nil {
		scorer = NewConfidenceScorer()
	}
	if table == nil {
		table = NewDecisionTable()
	}
	if filter == nil {
		filter = NewStageFilter()
	}
	return &DecisionGate{scorer: scorer, table: table, filter: filter}
}

// Route picks the response mode for a turn. The stage guard runs after the
// table: a mode the table picked but the stage does not allow downgrades to
// CLARIFICATION, flagged as AdjustedByStage. CLARIFICATION and PRESENCE are
// allowed at every stage, so the downgrade is always legal.
func (g *DecisionGate) Route(signals Signals, stage Stage, availableBlocks int) RoutingResult {
	if !stage.Valid() {
		stage = StageSurface
	}

	confidence := g.scorer.Score(signals)
	signals.Confidence = confidence.Score
	signals.UserStage = stage

	decision := g.table.Evaluate(signals)

	mode := decision.Route
	adjusted := false
	if !g.filter.IsModeAllowed(mode, stage) {
		mode = ModeClarification
		adjusted = true
	}

	return RoutingResult{
		Mode:            mode,
		Stage:           stage,
		RuleID:          decision.RuleID,
		Reason:          decision.Reason,
		Confidence:      confidence,
		Forbid:          decision.Forbid,
		BlockCap:        g.scorer.SuggestBlockCap(availableBlocks, confidence.Level),
		AdjustedByStage: adjusted,
	}
}
