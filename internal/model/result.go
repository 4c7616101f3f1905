package model

import (
	"errors"
	"math"
)

var (
	errEmptyOutput = errors.New("model returned no class scores")
	errNaNOutput   = errors.New("model returned NaN class scores")
)

// interpret picks the arg-max class and reports its score as a percentage.
// Scores outside [0,1] are treated as logits and passed through softmax first
// so the confidence always lands in [0,100].
func interpret(outputs []float32, classes []string) (*PredictionResult, error) {
	n := len(outputs)
	if len(classes) < n {
		n = len(classes)
	}
	if n == 0 {
		return nil, errEmptyOutput
	}

	scores := make([]float64, n)
	probabilities := true
	for i := 0; i < n; i++ {
		scores[i] = float64(outputs[i])
		if math.IsNaN(scores[i]) {
			return nil, errNaNOutput
		}
		if scores[i] < 0 || scores[i] > 1 {
			probabilities = false
		}
	}
	if !probabilities {
		scores = softmax(scores)
	}

	maxIdx := 0
	for i, v := range scores {
		if v > scores[maxIdx] {
			maxIdx = i
		}
	}

	label := classes[maxIdx]
	return &PredictionResult{
		Label:      label,
		Confidence: scores[maxIdx] * 100,
		Suggestion: SuggestionFor(label),
	}, nil
}

func softmax(in []float64) []float64 {
	maxVal := math.Inf(-1)
	for _, v := range in {
		if v > maxVal {
			maxVal = v
		}
	}
	out := make([]float64, len(in))
	var sum float64
	for i, v := range in {
		out[i] = math.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
