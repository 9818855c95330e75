// Package metrics scores recognised text against ground truth.
package metrics

import (
	"strings"

	"gonum.org/v1/gonum/stat"
)

// EditDistance is the Levenshtein distance between a and b: the minimum number
// of insertions, deletions and substitutions turning a into b.
func EditDistance[T comparable](a, b []T) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// CER is the character error rate: total rune edit distance over total
// reference runes. preds and targets are paired by index; extra entries in the
// longer slice are ignored. Returns 0 when the references are empty.
func CER(preds, targets []string) float64 {
	var dist, total int
	for i := 0; i < min(len(preds), len(targets)); i++ {
		p, t := []rune(preds[i]), []rune(targets[i])
		dist += EditDistance(p, t)
		total += len(t)
	}
	return ratio(dist, total)
}

// WER is the word error rate, computed like CER over whitespace-separated
// words.
func WER(preds, targets []string) float64 {
	var dist, total int
	for i := 0; i < min(len(preds), len(targets)); i++ {
		p, t := strings.Fields(preds[i]), strings.Fields(targets[i])
		dist += EditDistance(p, t)
		total += len(t)
	}
	return ratio(dist, total)
}

func ratio(dist, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(dist) / float64(total)
}

// Score is one prediction compared with its label.
type Score struct {
	Prediction string  `json:"prediction"`
	Label      string  `json:"label"`
	CER        float64 `json:"cer"`
	WER        float64 `json:"wer"`
}

// Accumulator collects per-sample scores.
type Accumulator struct {
	cer []float64
	wer []float64
}

// Add scores one prediction and records it.
func (a *Accumulator) Add(prediction, label string) Score {
	s := Score{
		Prediction: prediction,
		Label:      label,
		CER:        CER([]string{prediction}, []string{label}),
		WER:        WER([]string{prediction}, []string{label}),
	}
	a.cer = append(a.cer, s.CER)
	a.wer = append(a.wer, s.WER)
	return s
}

// Count is the number of recorded samples.
func (a *Accumulator) Count() int { return len(a.cer) }

// MeanCER is the unweighted mean of per-sample CER, 0 with no samples.
func (a *Accumulator) MeanCER() float64 { return mean(a.cer) }

// MeanWER is the unweighted mean of per-sample WER, 0 with no samples.
func (a *Accumulator) MeanWER() float64 { return mean(a.wer) }

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}
