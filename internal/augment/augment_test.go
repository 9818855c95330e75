package augment

import (
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// newBGR wraps raw BGR bytes as a rows x cols image.
func newBGR(t *testing.T, rows, cols int, data []byte) *wrimage.CVImage {
	t.Helper()
	m, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	img, err := wrimage.FromMat(m.Clone())
	m.Close()
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })
	return img
}

func filled(rows, cols int, b, g, r byte) []byte {
	data := make([]byte, 0, rows*cols*3)
	for i := 0; i < rows*cols; i++ {
		data = append(data, b, g, r)
	}
	return data
}

type counting struct {
	base
	calls int
}

func (c *counting) Augment(img wrimage.Image, _ *rand.Rand) (wrimage.Image, error) {
	c.calls++
	return img, nil
}

func TestChanceValidation(t *testing.T) {
	constructors := map[string]func(chance float64) error{
		"brightness": func(p float64) error {
			_, err := NewRandomBrightness(p, 100)
			return err
		},
		"erode_dilate": func(p float64) error {
			_, err := NewRandomErodeDilate(p, image.Pt(1, 1))
			return err
		},
		"sharpen": func(p float64) error {
			_, err := NewRandomSharpen(p, 0.25, [2]float64{0.75, 2})
			return err
		},
	}

	for name, build := range constructors {
		for _, p := range []float64{0, 0.25, 0.5, 1} {
			assert.NoError(t, build(p), "%s chance %v", name, p)
		}
		for _, p := range []float64{-0.01, 1.01, 5, math.NaN()} {
			err := build(p)
			assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument), "%s chance %v", name, p)
		}
	}
}

func TestParameterValidation(t *testing.T) {
	_, err := NewRandomBrightness(0.5, 256)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))
	_, err = NewRandomBrightness(0.5, -1)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))

	_, err = NewRandomErodeDilate(0.5, image.Pt(0, 3))
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))

	_, err = NewRandomSharpen(0.5, 1.5, [2]float64{0.75, 2})
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))
	_, err = NewRandomSharpen(0.5, 0.25, [2]float64{2, 1})
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))
}

func TestApplyGating(t *testing.T) {
	img := newBGR(t, 1, 1, []byte{1, 2, 3})
	rng := rand.New(rand.NewSource(1))

	never := &counting{base: base{name: "never", chance: 0}}
	always := &counting{base: base{name: "always", chance: 1}}
	for i := 0; i < 200; i++ {
		_, ran, err := Apply(never, img, rng)
		require.NoError(t, err)
		assert.False(t, ran)

		_, ran, err = Apply(always, img, rng)
		require.NoError(t, err)
		assert.True(t, ran)
	}
	assert.Zero(t, never.calls)
	assert.Equal(t, 200, always.calls)
}

func TestBrightnessIdentityMultiplier(t *testing.T) {
	data := []byte{
		255, 0, 0, 0, 255, 0, 0, 0, 255,
		128, 128, 128, 0, 0, 0, 255, 255, 255,
	}
	img := newBGR(t, 2, 3, data)

	before, err := img.HSV()
	require.NoError(t, err)
	defer before.Close()

	b, err := NewRandomBrightness(1, 100)
	require.NoError(t, err)
	out, err := b.Adjust(img, 1.0)
	require.NoError(t, err)
	assert.Same(t, img, out)

	after, err := img.HSV()
	require.NoError(t, err)
	defer after.Close()

	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			x, y := before.GetVecbAt(row, col), after.GetVecbAt(row, col)
			assert.InDelta(t, float64(x[1]), float64(y[1]), 1, "saturation at %d,%d", row, col)
			assert.InDelta(t, float64(x[2]), float64(y[2]), 1, "value at %d,%d", row, col)
		}
	}
}

func TestBrightnessScalesValue(t *testing.T) {
	img := newBGR(t, 2, 2, filled(2, 2, 200, 200, 200))
	b, err := NewRandomBrightness(1, 100)
	require.NoError(t, err)

	_, err = b.Adjust(img, 0.5)
	require.NoError(t, err)
	assert.Equal(t, filled(2, 2, 100, 100, 100), matBytes(img.Mat()))

	_, err = b.Adjust(img, 4)
	require.NoError(t, err)
	assert.Equal(t, filled(2, 2, 255, 255, 255), matBytes(img.Mat()), "values clip at 255")
}

func TestBrightnessZeroDelta(t *testing.T) {
	data := filled(3, 3, 10, 60, 200)
	img := newBGR(t, 3, 3, append([]byte(nil), data...))
	b, err := NewRandomBrightness(1, 0)
	require.NoError(t, err)

	_, err = b.Augment(img, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	assert.Equal(t, wrimage.Shape{Height: 3, Width: 3, Channels: 3}, img.Shape())
}

func TestErodeDilate(t *testing.T) {
	// A single white pixel in the middle of a black 5x5 image.
	data := filled(5, 5, 0, 0, 0)
	copy(data[(2*5+2)*3:], []byte{255, 255, 255})

	ed, err := NewRandomErodeDilate(1, image.Pt(3, 3))
	require.NoError(t, err)

	dilated := newBGR(t, 5, 5, append([]byte(nil), data...))
	_, err = ed.Dilate(dilated)
	require.NoError(t, err)
	assert.Equal(t, 27, countNonZero(matBytes(dilated.Mat())), "3x3 block of white")

	eroded := newBGR(t, 5, 5, append([]byte(nil), data...))
	_, err = ed.Erode(eroded)
	require.NoError(t, err)
	assert.Zero(t, countNonZero(matBytes(eroded.Mat())))

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		img := newBGR(t, 5, 5, append([]byte(nil), data...))
		out, err := ed.Augment(img, rng)
		require.NoError(t, err)
		n := countNonZero(matBytes(out.Mat()))
		assert.Contains(t, []int{0, 27}, n)
		assert.Equal(t, wrimage.Shape{Height: 5, Width: 5, Channels: 3}, out.Shape())
	}
}

func countNonZero(b []byte) int {
	n := 0
	for _, v := range b {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestSharpenKernel(t *testing.T) {
	s, err := NewRandomSharpen(1, 0.25, [2]float64{0.75, 2})
	require.NoError(t, err)

	k := s.Kernel(1, 1)
	assert.InDelta(t, 9, k.At(1, 1), 1e-12)
	assert.InDelta(t, -1, k.At(0, 0), 1e-12)

	k = s.Kernel(2, 0.5)
	assert.InDelta(t, 5.5, k.At(1, 1), 1e-12)
	assert.InDelta(t, -0.5, k.At(2, 1), 1e-12)

	k = s.Kernel(1.3, 0)
	assert.InDelta(t, 1, k.At(1, 1), 1e-12, "alpha 0 keeps the anchor")
	assert.InDelta(t, 0, k.At(0, 1), 1e-12)
}

func TestSharpenUniformImage(t *testing.T) {
	img := newBGR(t, 4, 4, filled(4, 4, 100, 100, 100))
	s, err := NewRandomSharpen(1, 0.25, [2]float64{0.75, 2})
	require.NoError(t, err)

	// Kernel(1, 1) sums to 1, so a flat image is unchanged.
	_, err = s.Sharpen(img, s.Kernel(1, 1))
	require.NoError(t, err)
	assert.Equal(t, filled(4, 4, 100, 100, 100), matBytes(img.Mat()))
}

func TestSharpenSameKernelPerChannel(t *testing.T) {
	data := make([]byte, 0, 6*6*3)
	for i := 0; i < 36; i++ {
		v := byte(i * 7)
		data = append(data, v, v, v)
	}
	img := newBGR(t, 6, 6, data)
	s, err := NewRandomSharpen(1, 0.25, [2]float64{0.75, 2})
	require.NoError(t, err)

	out, err := s.Augment(img, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	assert.Equal(t, wrimage.Shape{Height: 6, Width: 6, Channels: 3}, out.Shape())

	px := matBytes(out.Mat())
	for i := 0; i < len(px); i += 3 {
		assert.Equal(t, px[i], px[i+1])
		assert.Equal(t, px[i], px[i+2])
	}
}

func TestSharpenRejectsGrayscale(t *testing.T) {
	img, err := wrimage.FromMat(gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1))
	require.NoError(t, err)
	defer img.Close()

	s, err := NewRandomSharpen(1, 0.25, [2]float64{0.75, 2})
	require.NoError(t, err)
	_, err = s.Augment(img, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))
}

func TestPipelineKeepsDimensions(t *testing.T) {
	b, err := NewRandomBrightness(1, 50)
	require.NoError(t, err)
	ed, err := NewRandomErodeDilate(1, image.Pt(2, 2))
	require.NoError(t, err)
	s, err := NewRandomSharpen(1, 0.25, [2]float64{0.75, 2})
	require.NoError(t, err)

	p := NewPipeline(rand.New(rand.NewSource(5)), nil, b, ed, s)
	img := newBGR(t, 8, 13, filled(8, 13, 30, 90, 160))

	out, applied, err := p.Run(img)
	require.NoError(t, err)
	assert.Same(t, img, out)
	assert.Equal(t, []string{"RandomBrightness", "RandomErodeDilate", "RandomSharpen"}, applied)
	assert.Equal(t, wrimage.Shape{Height: 8, Width: 13, Channels: 3}, out.Shape())
}

// matBytes calls the pointer-receiver Mat.ToBytes on a returned Mat value.
func matBytes(m gocv.Mat) []byte { return m.ToBytes() }
