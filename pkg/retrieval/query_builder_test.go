package retrieval

import (
	"strings"
	"testing"
)

func TestHybridQueryBuilderBuild(t *testing.T) {
	builder := NewHybridQueryBuilder(0, 0, 0)

	t.Run("question only", func(t *testing.T) {
		got, err := builder.Build("Почему мне тяжело просить о помощи?", "", "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(got, "\n")
		if len(lines) != 2 {
			t.Fatalf("lines = %d, want 2", len(lines))
		}
		if lines[0] != "ВОПРОС-ЯКОРЬ: Почему мне тяжело просить о помощи?" {
			t.Errorf("head = %q", lines[0])
		}
		if lines[1] != "СНОВА ВОПРОС-ЯКОРЬ: Почему мне тяжело просить о помощи?" {
			t.Errorf("tail = %q", lines[1])
		}
	})

	t.Run("all sections in order", func(t *testing.T) {
		got, err := builder.Build(
			"Как перестать откладывать?",
			"Обсуждали прокрастинацию и страх ошибки.",
			"состояние: confused; фаза: осмысление",
			"[1] Пользователь: не могу начать",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(got, "\n")
		if len(lines) != 5 {
			t.Fatalf("lines = %d, want 5", len(lines))
		}
		wantPrefixes := []string{
			"ВОПРОС-ЯКОРЬ: ",
			"РАБОЧЕЕ СОСТОЯНИЕ: ",
			"РЕЗЮМЕ ДИАЛОГА: ",
			"КОРОТКИЙ КОНТЕКСТ: ",
			"СНОВА ВОПРОС-ЯКОРЬ: ",
		}
		for i, prefix := range wantPrefixes {
			if !strings.HasPrefix(lines[i], prefix) {
				t.Errorf("lines[%d] = %q, want prefix %q", i, lines[i], prefix)
			}
		}
	})

	t.Run("empty question fails", func(t *testing.T) {
		if _, err := builder.Build("   \n\t ", "", "", ""); err == nil {
			t.Fatal("expected error for blank question")
		}
	})

	t.Run("multiline sections are flattened", func(t *testing.T) {
		got, err := builder.Build("Вопрос?", "первая\nвторая   строка", "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(got, "РЕЗЮМЕ ДИАЛОГА: первая вторая строка") {
			t.Errorf("summary section not flattened: %q", got)
		}
	})

	t.Run("summary clipped to its budget", func(t *testing.T) {
		small := NewHybridQueryBuilder(2000, 20, 700)
		got, err := small.Build("Вопрос?", strings.Repeat("а", 50), "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, line := range strings.Split(got, "\n") {
			if strings.HasPrefix(line, "РЕЗЮМЕ ДИАЛОГА: ") {
				body := []rune(strings.TrimPrefix(line, "РЕЗЮМЕ ДИАЛОГА: "))
				if len(body) != 20 {
					t.Errorf("summary length = %d runes, want 20", len(body))
				}
				if !strings.HasSuffix(string(body), "...") {
					t.Errorf("clipped summary missing ellipsis: %q", string(body))
				}
				return
			}
		}
		t.Fatal("summary section missing")
	})
}

func TestHybridQueryBuilderAnchorPreservation(t *testing.T) {
	builder := NewHybridQueryBuilder(220, 0, 0)

	question := "Почему мне так трудно говорить о своих чувствах с близкими людьми?"
	got, err := builder.Build(
		question,
		strings.Repeat("длинное резюме диалога ", 40),
		"состояние: overwhelmed; эмоция: тревога; фаза: работа",
		strings.Repeat("короткий контекст последних ходов ", 40),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len([]rune(got)); got > 220 {
		t.Errorf("length = %d runes, want <= 220", got)
	}

	lines := strings.Split(got, "\n")
	if lines[0] != "ВОПРОС-ЯКОРЬ: "+question {
		t.Errorf("head anchor cut: %q", lines[0])
	}
	if lines[len(lines)-1] != "СНОВА ВОПРОС-ЯКОРЬ: "+question {
		t.Errorf("tail anchor cut: %q", lines[len(lines)-1])
	}
}
