package policy

import "math"

// ConfidenceLevel is a coarse 3-level band over the confidence score.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// ConfidenceResult is the calculated confidence value with per-signal
// contributions for audit.
type ConfidenceResult struct {
	Score         float64
	Level         ConfidenceLevel
	Contributions map[string]float64
}

// DefaultWeights is the default signal weight table. Weights are normalized
// to sum to 1 before use, so partial overrides remain valid.
var DefaultWeights = map[string]float64{
	"local_similarity":  0.3,
	"voyage_confidence": 0.4,
	"delta_top1_top2":   0.1,
	"state_match":       0.1,
	"question_clarity":  0.1,
}

// ConfidenceScorer is a weighted confidence scorer with configurable
// thresholds: score < low -> "low", score >= high -> "high".
type ConfidenceScorer struct {
	weights       map[string]float64
	lowThreshold  float64
	highThreshold float64
}

func NewConfidenceScorer() *ConfidenceScorer {
	return NewConfidenceScorerWith(nil, 0.4, 0.75)
}

func NewConfidenceScorerWith(weights map[string]float64, lowThreshold, highThreshold float64) *ConfidenceScorer {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	copied := make(map[string]float64, len(weights))
	for k, v := range weights {
		copied[k] = v
	}
	return &ConfidenceScorer{
		weights:       copied,
		lowThreshold:  lowThreshold,
		highThreshold: highThreshold,
	}
}

func (c *ConfidenceScorer) normalizedWeights() map[string]float64 {
	total := 0.0
	for _, w := range c.weights {
		total += w
	}
	if total <= 0 {
		return DefaultWeights
	}
	normalized := make(map[string]float64, len(c.weights))
	for k, w := range c.weights {
		normalized[k] = w / total
	}
	return normalized
}

// Score calculates the weighted confidence and its level. Missing signal
// names contribute zero.
func (c *ConfidenceScorer) Score(signals Signals) ConfidenceResult {
	weights := c.normalizedWeights()
	contributions := make(map[string]float64, len(weights))
	total := 0.0

	for name, weight := range weights {
		contrib := clip01(signals.floatSignal(name)) * weight
		contributions[name] = contrib
		total += contrib
	}

	total = math.Round(clip01(total)*10000) / 10000

	level := ConfidenceMedium
	switch {
	case total < c.lowThreshold:
		level = ConfidenceLow
	case total >= c.highThreshold:
		level = ConfidenceHigh
	}

	return ConfidenceResult{
		Score:         total,
		Level:         level,
		Contributions: contributions,
	}
}

// SuggestBlockCap suggests how many blocks answer generation should keep.
// Low confidence means a tighter context to avoid hallucinated synthesis.
func (c *ConfidenceScorer) SuggestBlockCap(availableBlocks int, level ConfidenceLevel) int {
	if availableBlocks < 0 {
		availableBlocks = 0
	}
	if availableBlocks <= 1 {
		return availableBlocks
	}

	switch level {
	case ConfidenceLow:
		return min(availableBlocks, 2)
	case ConfidenceMedium:
		return min(availableBlocks, 3)
	default:
		return availableBlocks
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
