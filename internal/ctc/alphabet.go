// Package ctc decodes per-timestep class probabilities produced by a
// CTC-trained recogniser into text.
package ctc

import (
	"fmt"
	"strings"

	rerrors "wordreader/internal/errors"
)

// BlankPosition says where the blank class sits in the model output.
type BlankPosition string

const (
	// BlankFirst puts blank at class 0; symbol i is class i+1.
	BlankFirst BlankPosition = "first"
	// BlankLast puts blank at class len(vocabulary); symbol i is class i.
	// Keras models trained with ctc_batch_cost use this layout.
	BlankLast BlankPosition = "last"
)

// Alphabet maps output classes to symbols.
type Alphabet struct {
	symbols []string
	blank   int
	offset  int
}

// NewAlphabet creates an alphabet. An empty position means BlankFirst.
func NewAlphabet(symbols []string, pos BlankPosition) (*Alphabet, error) {
	if len(symbols) == 0 {
		return nil, rerrors.InvalidArgument("vocabulary is empty")
	}
	a := &Alphabet{symbols: append([]string(nil), symbols...)}
	switch pos {
	case BlankFirst, "":
		a.blank, a.offset = 0, 1
	case BlankLast:
		a.blank, a.offset = len(symbols), 0
	default:
		return nil, rerrors.InvalidArgument("unknown blank position %q", pos)
	}
	return a, nil
}

// AlphabetFromString creates an alphabet with one symbol per rune of s.
func AlphabetFromString(s string, pos BlankPosition) (*Alphabet, error) {
	symbols := make([]string, 0, len(s))
	for _, r := range s {
		symbols = append(symbols, string(r))
	}
	return NewAlphabet(symbols, pos)
}

// Len is the number of symbols, excluding blank.
func (a *Alphabet) Len() int { return len(a.symbols) }

// Classes is the number of model output classes, including blank.
func (a *Alphabet) Classes() int { return len(a.symbols) + 1 }

// Blank is the class index of the blank token.
func (a *Alphabet) Blank() int { return a.blank }

// Symbols returns a copy of the vocabulary.
func (a *Alphabet) Symbols() []string { return append([]string(nil), a.symbols...) }

// Symbol returns the symbol for class. Blank and out-of-range classes report false.
func (a *Alphabet) Symbol(class int) (string, bool) {
	i := class - a.offset
	if class == a.blank || i < 0 || i >= len(a.symbols) {
		return "", false
	}
	return a.symbols[i], true
}

// Text maps a label sequence to a string, skipping blanks and unknown classes.
func (a *Alphabet) Text(labels []int) string {
	var b strings.Builder
	for _, l := range labels {
		if sym, ok := a.Symbol(l); ok {
			b.WriteString(sym)
		}
	}
	return b.String()
}

func (a *Alphabet) String() string {
	return fmt.Sprintf("Alphabet(%d symbols, blank=%d)", len(a.symbols), a.blank)
}
