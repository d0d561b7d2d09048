package response

import (
	"strings"

	"adaptive-dialogue-be/pkg/policy"
)

// Directive is the compact behavioral instruction injected into the
// completion call's system context for one turn.
type Directive struct {
	Mode            policy.Mode
	ConfidenceLevel policy.ConfidenceLevel
	Reason          string
	Forbid          []string
	PromptText      string
}

var modeBaseDirectives = map[policy.Mode]string{
	policy.ModePresence:      "Будь рядом и стабилизируй контакт. Коротко отзеркаль суть без анализа.",
	policy.ModeClarification: "Уточни запрос пользователя. Задай 1 точный проясняющий вопрос.",
	policy.ModeValidation:    "Признай переживание и нормализуй реакцию. Не давай жёстких указаний.",
	policy.ModeThinking:      "Замедли темп и помоги структурировать мысль шаг за шагом.",
	policy.ModeIntervention:  "Дай один практичный следующий шаг без перегруза вариантами.",
	policy.ModeIntegration:   "Закрепи инсайт и не углубляй дальше.",
}

func confidenceBehavior(level policy.ConfidenceLevel) string {
	switch level {
	case policy.ConfidenceLow:
		return "Уверенность низкая: не утверждай категорично, уточняй и предлагай мягко."
	case policy.ConfidenceHigh:
		return "Уверенность высокая: можно дать конкретный и ясный фокус."
	default:
		return "Уверенность средняя: сохраняй баланс между ясностью и осторожностью."
	}
}

func formatForbid(forbid []string) string {
	items := make([]string, 0, len(forbid))
	for _, f := range forbid {
		if f = strings.TrimSpace(f); f != "" {
			items = append(items, f)
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "Запрещено: " + strings.Join(items, ", ") + "."
}

// BuildDirective renders the per-turn mode directive. Unknown modes fall
// back to PRESENCE behavior.
func BuildDirective(mode policy.Mode, level policy.ConfidenceLevel, reason string, forbid []string) Directive {
	base, ok := modeBaseDirectives[mode]
	if !ok {
		mode = policy.ModePresence
		base = modeBaseDirectives[policy.ModePresence]
	}

	lines := []string{
		"РЕЖИМ: " + string(mode),
		base,
		confidenceBehavior(level),
	}
	if forbidLine := formatForbid(forbid); forbidLine != "" {
		lines = append(lines, forbidLine)
	}
	lines = append(lines, "Ответ держи в простом языке и без избыточной длины.")

	return Directive{
		Mode:            mode,
		ConfidenceLevel: level,
		Reason:          reason,
		Forbid:          forbid,
		PromptText:      strings.Join(lines, "\n"),
	}
}
