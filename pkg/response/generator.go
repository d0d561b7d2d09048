package response

import (
	"context"
	"fmt"
	"strings"

	"adaptive-dialogue-be/pkg/llm"
	"adaptive-dialogue-be/pkg/policy"
	"adaptive-dialogue-be/pkg/retrieval"
)

// defaultSystemPrompt sets the assistant's tone and hard boundaries. Mode
// directives are layered on top of it per turn.
const defaultSystemPrompt = `Ты — спокойный и поддерживающий собеседник-гид.

ТВОЁ ПОВЕДЕНИЕ:
1. Отвечай спокойно, уважительно, без осуждения.
2. Используй информацию ТОЛЬКО из предоставленных материалов.
3. Если информации нет в материалах — честно скажи об этом.
4. Всегда старайся найти практическое применение для жизни пользователя.
5. Избегай медицинских/психиатрических диагнозов.

ТОНУС:
- Спокойный, но не безличный
- "Предлагаю исследовать..." вместо "Ты должен..."
- Поддерживающий, но честный

ВАЖНО: Если пользователь упоминает серьёзные состояния (суицидальные мысли, панические атаки), добавь дисклеймер о необходимости обращения к специалисту.`

var modeTokenLimits = map[policy.Mode]int{
	policy.ModePresence:      420,
	policy.ModeClarification: 450,
	policy.ModeValidation:    500,
	policy.ModeThinking:      900,
	policy.ModeIntervention:  700,
	policy.ModeIntegration:   520,
}

// GenerateParams carries the per-turn generation inputs. Optional system
// context is passed explicitly instead of mutating generator state, so
// overlapping calls stay safe.
type GenerateParams struct {
	Query                   string
	Blocks                  []retrieval.ScoredBlock
	ConversationContext     string
	Mode                    policy.Mode
	ConfidenceLevel         policy.ConfidenceLevel
	Forbid                  []string
	AdditionalSystemContext string

	// Overrides; zero values mean generator defaults.
	Model       string
	Temperature *float64
	MaxTokens   int
}

type GenerateResult struct {
	Answer     string
	Mode       policy.Mode
	ModePrompt string
	BlocksUsed int
}

// Generator produces mode-aware LLM answers grounded in retrieved blocks.
type Generator struct {
	provider           llm.LLMProvider
	systemPrompt       string
	defaultModel       string
	defaultTemperature float64
	defaultMaxTokens   int
}

func NewGenerator(provider llm.LLMProvider, model string, temperature float64, maxTokens int) *Generator {
	if temperature <= 0 {
		temperature = 0.7
	}
	if maxTokens <= 0 {
		maxTokens = 900
	}
	return &Generator{
		provider:           provider,
		systemPrompt:       defaultSystemPrompt,
		defaultModel:       model,
		defaultTemperature: temperature,
		defaultMaxTokens:   maxTokens,
	}
}

func temperatureForConfidence(level policy.ConfidenceLevel, base float64) float64 {
	switch level {
	case policy.ConfidenceLow:
		if t := base - 0.15; t > 0.1 {
			return t
		}
		return 0.1
	case policy.ConfidenceHigh:
		if t := base + 0.05; t < 1.0 {
			return t
		}
		return 1.0
	default:
		return base
	}
}

func maxTokensForMode(mode policy.Mode, budget int) int {
	limit, ok := modeTokenLimits[mode]
	if !ok {
		return budget
	}
	if limit < budget {
		return limit
	}
	return budget
}

func buildContextPrompt(blocks []retrieval.ScoredBlock, question string) string {
	var b strings.Builder
	b.WriteString("МАТЕРИАЛ:\n\n")
	for i, sb := range blocks {
		fmt.Fprintf(&b, "--- БЛОК %d ---\n", i+1)
		fmt.Fprintf(&b, "Тема: %s\n", sb.Block.Title)
		if sb.Block.Summary != "" {
			fmt.Fprintf(&b, "Краткое описание: %s\n", sb.Block.Summary)
		}
		if sb.Block.Content != "" {
			fmt.Fprintf(&b, "Полный текст:\n%s\n", sb.Block.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "ВОПРОС ПОЛЬЗОВАТЕЛЯ:\n%s\n\n", question)
	b.WriteString("Сформируй ответ, опираясь на материал выше.")
	return b.String()
}

// Generate composes the system prompt from the base prompt, the per-turn mode
// directive and any additional context, then calls the LLM.
func (g *Generator) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	mode := params.Mode
	if _, ok := modeTokenLimits[mode]; !ok {
		mode = policy.ModePresence
	}
	level := params.ConfidenceLevel
	if level == "" {
		level = policy.ConfidenceMedium
	}

	directive := BuildDirective(mode, level, "", params.Forbid)

	systemChunks := []string{
		g.systemPrompt,
		"MODE DIRECTIVE:\n" + directive.PromptText,
	}
	if extra := strings.TrimSpace(params.AdditionalSystemContext); extra != "" {
		systemChunks = append(systemChunks, extra)
	}
	if conv := strings.TrimSpace(params.ConversationContext); conv != "" {
		systemChunks = append(systemChunks, "КОНТЕКСТ ДИАЛОГА:\n"+conv)
	}
	systemPrompt := strings.Join(systemChunks, "\n\n")

	baseTemp := g.defaultTemperature
	if params.Temperature != nil {
		baseTemp = *params.Temperature
	}
	temperature := temperatureForConfidence(level, baseTemp)

	budget := g.defaultMaxTokens
	if params.MaxTokens > 0 {
		budget = params.MaxTokens
	}
	maxTokens := maxTokensForMode(mode, budget)

	options := []llm.Option{
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(maxTokens),
	}
	model := g.defaultModel
	if params.Model != "" {
		model = params.Model
	}
	if model != "" {
		options = append(options, llm.WithModel(model))
	}

	history := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildContextPrompt(params.Blocks, params.Query)},
	}

	answer, err := g.provider.Chat(ctx, history, options...)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &GenerateResult{
		Answer:     answer,
		Mode:       mode,
		ModePrompt: directive.PromptText,
		BlocksUsed: len(params.Blocks),
	}, nil
}
