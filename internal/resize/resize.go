// Package resize fits images to the fixed input shape of a recognition model.
package resize

import (
	"image"
	"image/color"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"
	"wordreader/pkg/colorutil"

	"gocv.io/x/gocv"
)

// MaintainingAspectRatio scales src by min(targetWidth/w, targetHeight/h) and
// pads the remainder evenly with fill so the result is exactly
// targetWidth x targetHeight. fill is given in RGB terms for a BGR buffer.
// The caller owns the returned Mat.
func MaintainingAspectRatio(src gocv.Mat, targetWidth, targetHeight int, fill color.RGBA) (gocv.Mat, error) {
	if err := checkTarget(src, targetWidth, targetHeight); err != nil {
		return gocv.NewMat(), err
	}

	width, height := src.Cols(), src.Rows()
	ratio := min(float64(targetWidth)/float64(width), float64(targetHeight)/float64(height))
	newWidth := max(1, min(targetWidth, int(float64(width)*ratio)))
	newHeight := max(1, min(targetHeight, int(float64(height)*ratio)))

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(src, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	deltaW := targetWidth - newWidth
	deltaH := targetHeight - newHeight
	top, left := deltaH/2, deltaW/2
	bottom, right := deltaH-top, deltaW-left

	dst := gocv.NewMat()
	gocv.CopyMakeBorder(resized, &dst, top, bottom, left, right, gocv.BorderConstant, fill)
	return dst, nil
}

// UnpadMaintainingAspectRatio reverses MaintainingAspectRatio: it crops the
// padding that was added when an originalWidth x originalHeight image was
// letterboxed into padded, then resizes back to the original size.
func UnpadMaintainingAspectRatio(padded gocv.Mat, originalWidth, originalHeight int) (gocv.Mat, error) {
	if err := checkTarget(padded, originalWidth, originalHeight); err != nil {
		return gocv.NewMat(), err
	}

	width, height := padded.Cols(), padded.Rows()
	ratio := min(float64(width)/float64(originalWidth), float64(height)/float64(originalHeight))
	newWidth := max(1, min(width, int(float64(originalWidth)*ratio)))
	newHeight := max(1, min(height, int(float64(originalHeight)*ratio)))

	left := (width - newWidth) / 2
	top := (height - newHeight) / 2

	region := padded.Region(image.Rect(left, top, left+newWidth, top+newHeight))
	defer region.Close()

	dst := gocv.NewMat()
	gocv.Resize(region, &dst, image.Pt(originalWidth, originalHeight), 0, 0, gocv.InterpolationLinear)
	return dst, nil
}

func checkTarget(src gocv.Mat, width, height int) error {
	if src.Empty() {
		return rerrors.InvalidArgument("cannot resize an empty image")
	}
	if width <= 0 || height <= 0 {
		return rerrors.InvalidArgument("target size must be positive, got %dx%d", width, height)
	}
	return nil
}

// BorderColor averages the outermost rows and columns of a 3-channel 8-bit
// buffer, giving a padding colour that blends with the page background. The
// result is in the buffer's own channel order.
func BorderColor(src gocv.Mat) color.RGBA {
	rows, cols := src.Rows(), src.Cols()
	if src.Empty() || src.Channels() != 3 {
		return colorutil.Black
	}

	var sum [3]uint64
	var count uint64
	add := func(y, x int) {
		v := src.GetVecbAt(y, x)
		for c := 0; c < 3; c++ {
			sum[c] += uint64(v[c])
		}
		count++
	}
	for x := 0; x < cols; x++ {
		add(0, x)
		add(rows-1, x)
	}
	for y := 0; y < rows; y++ {
		add(y, 0)
		add(y, cols-1)
	}

	return color.RGBA{
		R: uint8(sum[0] / count),
		G: uint8(sum[1] / count),
		B: uint8(sum[2] / count),
		A: 255,
	}
}

// Resizer fits images to a fixed width and height.
type Resizer struct {
	Width  int
	Height int
	// KeepAspectRatio letterboxes instead of stretching.
	KeepAspectRatio bool
	// Fill is the padding colour in RGB terms.
	Fill color.RGBA
	// AutoFill pads with the image's BorderColor instead of Fill.
	AutoFill bool
}

// NewResizer returns a letterboxing resizer with black padding.
func NewResizer(width, height int) *Resizer {
	return &Resizer{
		Width:           width,
		Height:          height,
		KeepAspectRatio: true,
		Fill:            colorutil.Black,
	}
}

// Resize returns a new Mat of exactly Width x Height built from src, whose
// channels are ordered as cs.
func (r *Resizer) Resize(src gocv.Mat, cs wrimage.ColorSpace) (gocv.Mat, error) {
	if !r.KeepAspectRatio {
		if err := checkTarget(src, r.Width, r.Height); err != nil {
			return gocv.NewMat(), err
		}
		dst := gocv.NewMat()
		gocv.Resize(src, &dst, image.Pt(r.Width, r.Height), 0, 0, gocv.InterpolationLinear)
		return dst, nil
	}

	if r.AutoFill {
		// BorderColor is in buffer order; the border value puts B in channel 0.
		return MaintainingAspectRatio(src, r.Width, r.Height, colorutil.SwapRB(BorderColor(src)))
	}
	fill := r.Fill
	if cs == wrimage.RGB {
		fill = colorutil.SwapRB(fill)
	}
	return MaintainingAspectRatio(src, r.Width, r.Height, fill)
}

// Apply resizes img in place and returns it.
func (r *Resizer) Apply(img wrimage.Image) (wrimage.Image, error) {
	dst, err := r.Resize(img.Mat(), img.Color())
	if err != nil {
		return img, err
	}
	return img.Update(dst)
}
