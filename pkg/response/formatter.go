package response

import (
	"strings"

	"adaptive-dialogue-be/pkg/policy"
)

const (
	clarifyingQuestion  = ". Что в этом для вас сейчас главное?"
	lowConfidencePrefix = "Могу ошибаться, поэтому уточню аккуратно. "
)

// hedgePrefixes are phrases that already soften an answer; the low-confidence
// preamble is skipped when the text starts with one of them.
var hedgePrefixes = []string{"могу ошибаться", "возможно", "похоже"}

var defaultModeCharLimits = map[policy.Mode]int{
	policy.ModePresence:      520,
	policy.ModeClarification: 520,
	policy.ModeValidation:    620,
	policy.ModeThinking:      1200,
	policy.ModeIntervention:  900,
	policy.ModeIntegration:   650,
}

const fallbackCharLimit = 900

// Formatter applies mode-aware output shaping: clarifying-question append,
// low-confidence hedging and per-mode length limits.
type Formatter struct {
	modeCharLimits map[policy.Mode]int
}

func NewFormatter(modeCharLimits map[policy.Mode]int) *Formatter {
	if len(modeCharLimits) == 0 {
		modeCharLimits = defaultModeCharLimits
	}
	return &Formatter{modeCharLimits: modeCharLimits}
}

// clip truncates to maxChars runes; truncation always cuts to max-3 plus an
// ellipsis, with no sentence awareness.
func clip(text string, maxChars int) string {
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}
	cut := maxChars - 3
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRight(string(runes[:cut]), " \t\n") + "..."
}

func normalize(text string) string {
	compact := strings.TrimSpace(text)
	for strings.Contains(compact, "\n\n\n") {
		compact = strings.ReplaceAll(compact, "\n\n\n", "\n\n")
	}
	return compact
}

// FormatAnswer shapes the generated answer for the given mode and confidence
// level. maxChars overrides the mode limit when positive.
func (f *Formatter) FormatAnswer(answer string, mode policy.Mode, level policy.ConfidenceLevel, maxChars int) string {
	text := normalize(answer)

	if mode == policy.ModeClarification && !strings.Contains(text, "?") {
		text = strings.TrimRight(text, ".! ")
		text += clarifyingQuestion
	}

	if level == policy.ConfidenceLow {
		lowered := strings.ToLower(text)
		hedged := false
		for _, prefix := range hedgePrefixes {
			if strings.HasPrefix(lowered, prefix) {
				hedged = true
				break
			}
		}
		if !hedged {
			text = lowConfidencePrefix + text
		}
	}

	limit := maxChars
	if limit <= 0 {
		var ok bool
		if limit, ok = f.modeCharLimits[mode]; !ok {
			limit = fallbackCharLimit
		}
	}
	return clip(text, limit)
}
