package memory

import (
	"context"
	"fmt"
	"strings"

	"adaptive-dialogue-be/pkg/llm"
)

const summaryPrompt = `Сделай краткое резюме диалога в 3-4 предложениях.
Отрази: главную тему, состояние пользователя и к чему пришёл разговор.
Пиши по-русски, без списков и заголовков.`

// LLMSummarizer compacts recent turns into a synopsis via the chat model.
type LLMSummarizer struct {
	provider  llm.LLMProvider
	maxTokens int
}

func NewLLMSummarizer(provider llm.LLMProvider) *LLMSummarizer {
	return &LLMSummarizer{provider: provider, maxTokens: 300}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, turns []Turn) (string, error) {
	if len(turns) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&b, "Пользователь: %s\n", turn.UserInput)
		fmt.Fprintf(&b, "Бот: %s\n\n", preview(turn.BotResponse, responsePreviewChars))
	}

	history := []llm.Message{
		{Role: "system", Content: summaryPrompt},
		{Role: "user", Content: b.String()},
	}

	summary, err := s.provider.Chat(ctx, history,
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(s.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("summarize dialogue: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
