package retrieval

import (
	"errors"
	"strings"
)

const (
	anchorLabel       = "ВОПРОС-ЯКОРЬ: "
	anchorRepeatLabel = "СНОВА ВОПРОС-ЯКОРЬ: "
	workingStateLabel = "РАБОЧЕЕ СОСТОЯНИЕ: "
	summaryLabel      = "РЕЗЮМЕ ДИАЛОГА: "
	shortTermLabel    = "КОРОТКИЙ КОНТЕКСТ: "

	defaultQueryMaxChars       = 2000
	defaultQuerySummaryChars   = 500
	defaultQueryShortTermChars = 700
)

var ErrEmptyQuestion = errors.New("question is empty")

// HybridQueryBuilder assembles the retrieval query string from the current
// question plus optional conversational context. The question is anchored at
// both the first and the last line; whatever clipping the character budgets
// force, the anchors are never the part removed.
type HybridQueryBuilder struct {
	maxChars       int
	summaryChars   int
	shortTermChars int
}

func NewHybridQueryBuilder(maxChars, summaryChars, shortTermChars int) *HybridQueryBuilder {
	if maxChars <= 0 {
		maxChars = defaultQueryMaxChars
	}
	if summaryChars <= 0 {
		summaryChars = defaultQuerySummaryChars
	}
	if shortTermChars <= 0 {
		shortTermChars = defaultQueryShortTermChars
	}
	return &HybridQueryBuilder{
		maxChars:       maxChars,
		summaryChars:   summaryChars,
		shortTermChars: shortTermChars,
	}
}

// Build returns the multi-section query string. workingStateLine is the
// already formatted one-line description of the working state, empty when
// unknown. Fails when the question is blank.
func (b *HybridQueryBuilder) Build(question, summary, workingStateLine, shortTermContext string) (string, error) {
	question = normalizeWhitespace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	head := anchorLabel + question
	tail := anchorRepeatLabel + question

	middle := make([]string, 0, 3)
	if line := normalizeWhitespace(workingStateLine); line != "" {
		middle = append(middle, workingStateLabel+line)
	}
	if s := clipRunes(normalizeWhitespace(summary), b.summaryChars); s != "" {
		middle = append(middle, summaryLabel+s)
	}
	if s := clipRunes(normalizeWhitespace(shortTermContext), b.shortTermChars); s != "" {
		middle = append(middle, shortTermLabel+s)
	}

	parts := append([]string{head}, middle...)
	parts = append(parts, tail)
	assembled := strings.Join(parts, "\n")
	if runeLen(assembled) <= b.maxChars {
		return assembled, nil
	}

	// Over budget: the anchors stay verbatim, only the middle shrinks.
	anchorsLen := runeLen(head) + runeLen(tail) + 1
	budget := b.maxChars - anchorsLen
	if budget <= 1 || len(middle) == 0 {
		return head + "\n" + tail, nil
	}

	middleText := clipRunes(strings.Join(middle, "\n"), budget-1)
	if middleText == "" {
		return head + "\n" + tail, nil
	}
	return head + "\n" + middleText + "\n" + tail, nil
}

// normalizeWhitespace collapses all whitespace runs, newlines included, into
// single spaces so every section stays a single line.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return len([]rune(s))
}

// clipRunes truncates s to at most limit runes, replacing the cut tail with
// an ellipsis marker.
func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
