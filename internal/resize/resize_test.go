package resize

import (
	"errors"
	"image/color"
	"testing"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"
	"wordreader/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solid(t *testing.T, rows, cols int, v byte) gocv.Mat {
	t.Helper()
	data := make([]byte, rows*cols*3)
	for i := range data {
		data[i] = v
	}
	m, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)
	cp := m.Clone()
	m.Close()
	t.Cleanup(func() { cp.Close() })
	return cp
}

func TestOutputAlwaysMatchesTarget(t *testing.T) {
	sources := [][2]int{{1, 1}, {10, 300}, {300, 10}, {32, 128}, {97, 1}, {1, 97}, {500, 500}, {7, 13}}
	targets := [][2]int{{128, 32}, {1408, 96}, {64, 64}, {1, 1}, {33, 17}}

	for _, s := range sources {
		src := solid(t, s[0], s[1], 200)
		for _, tg := range targets {
			dst, err := MaintainingAspectRatio(src, tg[0], tg[1], colorutil.Black)
			require.NoError(t, err)
			assert.Equal(t, tg[0], dst.Cols(), "src %v target %v", s, tg)
			assert.Equal(t, tg[1], dst.Rows(), "src %v target %v", s, tg)
			assert.Equal(t, 3, dst.Channels())
			dst.Close()
		}
	}
}

func TestPaddingIsCentred(t *testing.T) {
	// 10x10 white into 30x10: scaled 10x10, 10 columns of padding each side.
	src := solid(t, 10, 10, 255)
	dst, err := MaintainingAspectRatio(src, 30, 10, colorutil.Black)
	require.NoError(t, err)
	defer dst.Close()

	assert.Equal(t, uint8(0), dst.GetVecbAt(5, 0)[0])
	assert.Equal(t, uint8(0), dst.GetVecbAt(5, 9)[0])
	assert.Equal(t, uint8(255), dst.GetVecbAt(5, 10)[0])
	assert.Equal(t, uint8(255), dst.GetVecbAt(5, 19)[0])
	assert.Equal(t, uint8(0), dst.GetVecbAt(5, 20)[0])
}

func TestFillColour(t *testing.T) {
	src := solid(t, 4, 4, 0)
	fill := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	dst, err := MaintainingAspectRatio(src, 4, 8, fill)
	require.NoError(t, err)
	defer dst.Close()

	// BGR buffer: blue first.
	assert.Equal(t, gocv.Vecb{30, 20, 10}, dst.GetVecbAt(0, 0))
}

func TestInvalidTargets(t *testing.T) {
	src := solid(t, 4, 4, 0)
	_, err := MaintainingAspectRatio(src, 0, 10, colorutil.Black)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = MaintainingAspectRatio(empty, 10, 10, colorutil.Black)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))
}

func TestUnpadRestoresSize(t *testing.T) {
	src := solid(t, 20, 60, 180)
	padded, err := MaintainingAspectRatio(src, 128, 128, colorutil.Black)
	require.NoError(t, err)
	defer padded.Close()

	restored, err := UnpadMaintainingAspectRatio(padded, 60, 20)
	require.NoError(t, err)
	defer restored.Close()
	assert.Equal(t, 60, restored.Cols())
	assert.Equal(t, 20, restored.Rows())
	assert.Equal(t, uint8(180), restored.GetVecbAt(10, 30)[0])
}

func TestResizerApply(t *testing.T) {
	img, err := wrimage.FromMat(matClone(solid(t, 50, 20, 90)))
	require.NoError(t, err)
	defer img.Close()

	r := NewResizer(64, 32)
	out, err := r.Apply(img)
	require.NoError(t, err)
	assert.Same(t, img, out)
	assert.Equal(t, wrimage.Shape{Height: 32, Width: 64, Channels: 3}, img.Shape())

	r.KeepAspectRatio = false
	r.Width, r.Height = 10, 5
	_, err = r.Apply(img)
	require.NoError(t, err)
	assert.Equal(t, wrimage.Shape{Height: 5, Width: 10, Channels: 3}, img.Shape())
	assert.Equal(t, uint8(90), matVecbAt(img.Mat(), 2, 2)[0])
}

func TestBorderColor(t *testing.T) {
	src := solid(t, 6, 6, 0)
	// Paint the border (30, 20, 10) in buffer order, leave the centre black.
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if y == 0 || y == 5 || x == 0 || x == 5 {
				src.SetUCharAt(y, x*3, 30)
				src.SetUCharAt(y, x*3+1, 20)
				src.SetUCharAt(y, x*3+2, 10)
			}
		}
	}
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 255}, BorderColor(src))

	gray := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC1)
	defer gray.Close()
	assert.Equal(t, colorutil.Black, BorderColor(gray))
}

func TestResizerAutoFill(t *testing.T) {
	r := NewResizer(8, 4)
	r.AutoFill = true
	src := solid(t, 4, 4, 240)
	dst, err := r.Resize(src, wrimage.BGR)
	require.NoError(t, err)
	defer dst.Close()
	assert.Equal(t, gocv.Vecb{240, 240, 240}, dst.GetVecbAt(0, 0))
}

// matVecbAt calls the pointer-receiver Mat.GetVecbAt on a returned Mat value.
func matVecbAt(m gocv.Mat, row, col int) gocv.Vecb { return m.GetVecbAt(row, col) }

// matClone calls the pointer-receiver Mat.Clone on a returned Mat value.
func matClone(m gocv.Mat) gocv.Mat { return m.Clone() }
