package policy

// DecisionResult is the outcome of decision table evaluation.
type DecisionResult struct {
	RuleID     int
	Route      Mode
	Reason     string
	Confidence float64
	Forbid     []string
}

// DecisionTable evaluates dialogue signals and picks the bot mode.
//
// Priority is top-to-bottom: the first matching rule wins. The ordering
// encodes safety policy, do not reorder. In particular rule 8 (action ask at
// the surface stage) must be checked before rule 9 (action ask with medium or
// high confidence): both match the same signal combination and only the stage
// disambiguates them.
type DecisionTable struct{}

func NewDecisionTable() *DecisionTable {
	return &DecisionTable{}
}

// Evaluate expects the Confidence and UserStage fields to already be merged
// into the signal bundle (DecisionGate does this).
func (t *DecisionTable) Evaluate(s Signals) DecisionResult {
	confidence := s.Confidence
	stage := s.UserStage
	if !stage.Valid() {
		stage = StageSurface
	}

	result := func(ruleID int, route Mode, reason string, forbid ...string) DecisionResult {
		return DecisionResult{
			RuleID:     ruleID,
			Route:      route,
			Reason:     reason,
			Confidence: confidence,
			Forbid:     forbid,
		}
	}

	switch {
	case confidence < 0.4:
		return result(1, ModeClarification, "low confidence",
			"explain", "advise_directly")

	case s.InsightSignal:
		return result(2, ModeIntegration, "insight signal detected",
			"deepen_further", "add_more", "analyze", "explain_why")

	case s.ExplicitAsk && s.AskType == "action" && s.InterventionCooldownOK &&
		(stage == StageExploration || stage == StageIntegration):
		return result(3, ModeIntervention, "explicit action request",
			"lecture", "overload")

	case s.EmotionLoad == "high" && !s.ExplicitAsk:
		return result(4, ModeValidation, "high emotional load",
			"push_action")

	case s.Contradiction && confidence >= 0.55:
		return result(5, ModeThinking, "contradiction/high complexity",
			"fast_advice")

	case s.ValidationNeeded:
		return result(6, ModeValidation, "explicit validation request",
			"interpretation_overreach")

	case s.ThinkingDue:
		return result(7, ModeThinking, "thinking interval due",
			"surface_response")

	case s.ExplicitAsk && s.AskType == "action" && stage == StageSurface:
		return result(8, ModeClarification, "stage too early for intervention",
			"deep_intervention")

	case s.ExplicitAsk && s.AskType == "action" && confidence >= 0.5 && s.InterventionCooldownOK:
		return result(9, ModeIntervention, "action ask and confidence medium/high",
			"too_many_options")

	default:
		return result(10, ModePresence, "default pacing")
	}
}
