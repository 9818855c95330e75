package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRGB(t *testing.T) {
	c, err := ParseRGB("10, 20,30")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, c)

	c, err = ParseRGB("white")
	require.NoError(t, err)
	assert.Equal(t, White, c)

	for _, bad := range []string{"1,2", "a,b,c", "0,0,256"} {
		_, err := ParseRGB(bad)
		assert.Error(t, err, bad)
	}
}

func TestSwapRB(t *testing.T) {
	got := SwapRB(color.RGBA{R: 1, G: 2, B: 3, A: 255})
	assert.Equal(t, color.RGBA{R: 3, G: 2, B: 1, A: 255}, got)
}
