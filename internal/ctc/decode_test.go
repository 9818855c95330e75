package ctc

import (
	"errors"
	"testing"

	rerrors "wordreader/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// oneHot builds a (len(path) x classes) matrix with probability 0.9 on the
// path class and the remainder spread evenly.
func oneHot(path []int, classes int) *mat.Dense {
	rest := 0.1 / float64(classes-1)
	m := mat.NewDense(len(path), classes, nil)
	for t, c := range path {
		for k := 0; k < classes; k++ {
			m.Set(t, k, rest)
		}
		m.Set(t, c, 0.9)
	}
	return m
}

func abAlphabet(t *testing.T, pos BlankPosition) *Alphabet {
	t.Helper()
	a, err := AlphabetFromString("ab", pos)
	require.NoError(t, err)
	return a
}

func TestAlphabetLayouts(t *testing.T) {
	first := abAlphabet(t, BlankFirst)
	assert.Equal(t, 0, first.Blank())
	assert.Equal(t, 3, first.Classes())
	s, ok := first.Symbol(1)
	assert.True(t, ok)
	assert.Equal(t, "a", s)
	_, ok = first.Symbol(0)
	assert.False(t, ok)

	last := abAlphabet(t, BlankLast)
	assert.Equal(t, 2, last.Blank())
	s, ok = last.Symbol(0)
	assert.True(t, ok)
	assert.Equal(t, "a", s)
	_, ok = last.Symbol(2)
	assert.False(t, ok)
	_, ok = last.Symbol(7)
	assert.False(t, ok)
	_, ok = last.Symbol(-1)
	assert.False(t, ok)
}

func TestAlphabetErrors(t *testing.T) {
	_, err := NewAlphabet(nil, BlankFirst)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))

	_, err = AlphabetFromString("ab", "middle")
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))
}

func TestAlphabetMultibyte(t *testing.T) {
	a, err := AlphabetFromString("äöü", BlankLast)
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "üä", a.Text([]int{2, 0}))
}

func TestAlphabetTextLongSequence(t *testing.T) {
	a, err := AlphabetFromString("ab", BlankFirst)
	require.NoError(t, err)

	labels := make([]int, 10000)
	for i := range labels {
		labels[i] = i % 3
	}
	text := a.Text(labels)
	assert.Len(t, text, 6666)
	assert.Equal(t, "ab", text[:2])
	assert.Empty(t, a.Text(nil))
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Collapse([]int{1, 1, 0, 2, 2, 2}, 0))
	assert.Equal(t, []int{1, 1}, Collapse([]int{1, 0, 1}, 0))
	assert.Equal(t, []int{}, Collapse([]int{0, 0, 0}, 0))
	assert.Equal(t, []int{}, Collapse(nil, 0))
}

func TestGreedyDecode(t *testing.T) {
	tests := []struct {
		name string
		pos  BlankPosition
		path []int
		want string
	}{
		{"all blank", BlankFirst, []int{0, 0, 0, 0}, ""},
		{"repeats collapse", BlankFirst, []int{1, 1, 0, 2, 2, 2}, "ab"},
		{"blank separates repeats", BlankFirst, []int{1, 0, 1}, "aa"},
		{"blank last", BlankLast, []int{0, 0, 2, 1, 1, 2}, "ab"},
		{"blank last all blank", BlankLast, []int{2, 2}, ""},
		{"no blanks", BlankFirst, []int{2, 1, 2}, "bab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := abAlphabet(t, tt.pos)
			got := Greedy{Alphabet: a}.Decode(oneHot(tt.path, a.Classes()))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGreedyDropsOutOfRangeClasses(t *testing.T) {
	// Model emits more classes than the vocabulary covers.
	a := abAlphabet(t, BlankFirst)
	got := Greedy{Alphabet: a}.Decode(oneHot([]int{1, 4, 4, 2}, 5))
	assert.Equal(t, "ab", got)
}

func TestGreedyEmptyInput(t *testing.T) {
	a := abAlphabet(t, BlankFirst)
	var empty mat.Dense
	assert.Equal(t, "", Greedy{Alphabet: a}.Decode(&empty))
}

func TestBeamSearchMatchesGreedyOnPeakedInput(t *testing.T) {
	a := abAlphabet(t, BlankFirst)
	probs := oneHot([]int{1, 1, 0, 2, 2, 0, 2}, a.Classes())
	greedy := Greedy{Alphabet: a}.Decode(probs)
	beam := BeamSearch{Alphabet: a, Width: 8}.Decode(probs)
	assert.Equal(t, "abb", greedy)
	assert.Equal(t, greedy, beam)
}

func TestBeamSearchSumsAlignments(t *testing.T) {
	// P("") = 0.36, P("a") = 0.64, but the single best path is blank-blank.
	a, err := AlphabetFromString("a", BlankFirst)
	require.NoError(t, err)
	probs := mat.NewDense(2, 2, []float64{
		0.6, 0.4,
		0.6, 0.4,
	})
	assert.Equal(t, "", Greedy{Alphabet: a}.Decode(probs))
	assert.Equal(t, "a", BeamSearch{Alphabet: a, Width: 4}.Decode(probs))
}

func TestBeamSearchLongInputDoesNotUnderflow(t *testing.T) {
	a := abAlphabet(t, BlankFirst)
	path := make([]int, 0, 800)
	for i := 0; i < 200; i++ {
		path = append(path, 1, 0, 2, 0)
	}
	probs := oneHot(path, a.Classes())
	got := BeamSearch{Alphabet: a, Width: 3}.Decode(probs)
	assert.Len(t, got, 400)
	assert.Equal(t, "abab", got[:4])
}

func TestBeamSearchWidthBelowOne(t *testing.T) {
	a := abAlphabet(t, BlankFirst)
	probs := oneHot([]int{1, 0, 2}, a.Classes())
	assert.Equal(t, "ab", BeamSearch{Alphabet: a}.Decode(probs))
}
