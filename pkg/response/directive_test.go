package response

import (
	"strings"
	"testing"

	"adaptive-dialogue-be/pkg/policy"
)

func TestBuildDirective(t *testing.T) {
	t.Run("full directive", func(t *testing.T) {
		got := BuildDirective(policy.ModeIntervention, policy.ConfidenceHigh, "explicit action request", []string{"lecture", "overload"})

		lines := strings.Split(got.PromptText, "\n")
		if len(lines) != 5 {
			t.Fatalf("lines = %d, want 5:\n%s", len(lines), got.PromptText)
		}
		if lines[0] != "РЕЖИМ: INTERVENTION" {
			t.Errorf("mode line = %q", lines[0])
		}
		if !strings.Contains(lines[1], "один практичный следующий шаг") {
			t.Errorf("base directive = %q", lines[1])
		}
		if !strings.HasPrefix(lines[2], "Уверенность высокая:") {
			t.Errorf("confidence line = %q", lines[2])
		}
		if lines[3] != "Запрещено: lecture, overload." {
			t.Errorf("forbid line = %q", lines[3])
		}
	})

	t.Run("no forbid line when empty", func(t *testing.T) {
		got := BuildDirective(policy.ModePresence, policy.ConfidenceMedium, "default pacing", nil)
		if strings.Contains(got.PromptText, "Запрещено") {
			t.Errorf("unexpected forbid line:\n%s", got.PromptText)
		}
		if lines := strings.Split(got.PromptText, "\n"); len(lines) != 4 {
			t.Errorf("lines = %d, want 4", len(lines))
		}
	})

	t.Run("unknown mode falls back to presence", func(t *testing.T) {
		got := BuildDirective(policy.Mode("WEIRD"), policy.ConfidenceMedium, "", nil)
		if got.Mode != policy.ModePresence {
			t.Errorf("Mode = %s, want PRESENCE", got.Mode)
		}
		if !strings.HasPrefix(got.PromptText, "РЕЖИМ: PRESENCE") {
			t.Errorf("prompt = %q", got.PromptText)
		}
	})

	t.Run("blank forbid entries skipped", func(t *testing.T) {
		got := BuildDirective(policy.ModeValidation, policy.ConfidenceLow, "", []string{" ", "push_action", ""})
		if !strings.Contains(got.PromptText, "Запрещено: push_action.") {
			t.Errorf("forbid line wrong:\n%s", got.PromptText)
		}
	})
}
