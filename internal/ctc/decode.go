package ctc

import (
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Decoder turns a (time steps x classes) probability matrix into text.
type Decoder interface {
	Decode(probs mat.Matrix) string
}

// BestPath returns the argmax class of every time step. Ties go to the lower
// class index.
func BestPath(probs mat.Matrix) []int {
	rows, cols := probs.Dims()
	path := make([]int, rows)
	for t := 0; t < rows; t++ {
		best := 0
		bestVal := probs.At(t, 0)
		for c := 1; c < cols; c++ {
			if v := probs.At(t, c); v > bestVal {
				best, bestVal = c, v
			}
		}
		path[t] = best
	}
	return path
}

// Collapse merges consecutive repeats and then drops blanks.
func Collapse(path []int, blank int) []int {
	out := make([]int, 0, len(path))
	prev := -1
	for _, c := range path {
		if c != prev && c != blank {
			out = append(out, c)
		}
		prev = c
	}
	return out
}

// Greedy is best-path decoding.
type Greedy struct {
	Alphabet *Alphabet
}

// Decode takes the argmax per step, collapses repeats, drops blanks and maps
// the rest through the alphabet.
func (g Greedy) Decode(probs mat.Matrix) string {
	return g.Alphabet.Text(Collapse(BestPath(probs), g.Alphabet.Blank()))
}

// BeamSearch is CTC prefix beam search. It sums the probability of every
// alignment of a prefix, so it can beat Greedy when mass is spread across
// several paths.
type BeamSearch struct {
	Alphabet *Alphabet
	// Width is the number of prefixes kept per step; values below 1 mean 1.
	Width int
}

type prefix struct {
	labels []int
	blank  float64 // probability of ending in blank
	label  float64 // probability of ending in the last label
}

func (p *prefix) total() float64 { return p.blank + p.label }

func prefixKey(labels []int) string {
	var b strings.Builder
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(l))
	}
	return b.String()
}

// Decode runs the beam search over probs, which must hold probabilities
// (softmax output), not logits.
func (bs BeamSearch) Decode(probs mat.Matrix) string {
	width := max(1, bs.Width)
	blank := bs.Alphabet.Blank()
	rows, cols := probs.Dims()

	beams := []*prefix{{blank: 1}}
	for t := 0; t < rows; t++ {
		next := make(map[string]*prefix)
		get := func(labels []int) *prefix {
			k := prefixKey(labels)
			p, ok := next[k]
			if !ok {
				p = &prefix{labels: labels}
				next[k] = p
			}
			return p
		}

		for _, b := range beams {
			for c := 0; c < cols; c++ {
				p := probs.At(t, c)
				if p == 0 {
					continue
				}
				if c == blank {
					get(b.labels).blank += b.total() * p
					continue
				}

				extended := make([]int, len(b.labels)+1)
				copy(extended, b.labels)
				extended[len(b.labels)] = c

				if n := len(b.labels); n > 0 && b.labels[n-1] == c {
					// A repeat only extends the prefix across a blank.
					get(extended).label += b.blank * p
					get(b.labels).label += b.label * p
				} else {
					get(extended).label += b.total() * p
				}
			}
		}

		beams = prune(next, width)
	}

	if len(beams) == 0 {
		return ""
	}
	return bs.Alphabet.Text(beams[0].labels)
}

// prune keeps the width most probable prefixes, renormalised so long inputs
// do not underflow.
func prune(next map[string]*prefix, width int) []*prefix {
	keys := make([]string, 0, len(next))
	for k := range next {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := next[keys[i]].total(), next[keys[j]].total()
		if pi != pj {
			return pi > pj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > width {
		keys = keys[:width]
	}

	out := make([]*prefix, len(keys))
	var sum float64
	for i, k := range keys {
		out[i] = next[k]
		sum += out[i].total()
	}
	if sum > 0 {
		for _, p := range out {
			p.blank /= sum
			p.label /= sum
		}
	}
	return out
}
