package agent

import "adaptive-dialogue-be/pkg/policy"

const defaultFeedbackPrompt = "Был ли этот ответ полезен? Оцените от 1 до 5."

var feedbackPrompts = map[policy.UserState]string{
	policy.StateUnaware:      "Стало ли понятнее, о чём речь? Что осталось непонятным?",
	policy.StateCurious:      "Хотите узнать что-то ещё по этой теме?",
	policy.StateOverwhelmed:  "Не слишком ли много информации? Нужно ли упростить?",
	policy.StateResistant:    "Есть ли что-то, с чем вы не согласны? Давайте обсудим.",
	policy.StateConfused:     "Прояснилось ли объяснение? Если нет, какая часть всё ещё непонятна?",
	policy.StateCommitted:    "Готовы ли вы начать практику? Какая поддержка нужна?",
	policy.StatePracticing:   "Как идёт практика? Есть ли сложности?",
	policy.StateStagnant:     "Что, по-вашему, мешает продвижению? Попробуем найти новый подход?",
	policy.StateBreakthrough: "Поздравляю с инсайтом! Как планируете применить это понимание?",
	policy.StateIntegrated:   "Как это знание проявляется в вашей жизни?",
}

// feedbackPromptFor picks the follow-up question matching the user's state.
func feedbackPromptFor(analysis *policy.StateAnalysis) string {
	if analysis == nil {
		return defaultFeedbackPrompt
	}
	if prompt, ok := feedbackPrompts[analysis.PrimaryState]; ok {
		return prompt
	}
	return defaultFeedbackPrompt
}
