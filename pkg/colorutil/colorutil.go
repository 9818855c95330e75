// Package colorutil provides the padding colours shared by the resizer, the
// predictor and the command-line tools.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Padding colours.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ParseRGB parses "r,g,b" (0-255 each) or one of the names "black"/"white".
// The -pad-color flag of every tool is parsed with it.
func ParseRGB(s string) (color.RGBA, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "black":
		return Black, nil
	case "white":
		return White, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("color %q: expected r,g,b", s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
		}
		if n < 0 || n > 255 {
			return color.RGBA{}, fmt.Errorf("color %q: component %d out of range", s, n)
		}
		rgb[i] = uint8(n)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

// SwapRB exchanges the red and blue components. gocv maps color.RGBA onto a
// BGR scalar, so fills for RGB-ordered buffers are swapped first.
func SwapRB(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: c.A}
}
