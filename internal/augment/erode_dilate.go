package augment

import (
	"image"
	"math/rand"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"

	"gocv.io/x/gocv"
)

// RandomErodeDilate erodes or dilates the image with equal probability.
type RandomErodeDilate struct {
	base
	kernelSize image.Point
}

// NewRandomErodeDilate creates the augmentor. kernelSize is the rectangular
// kernel (X = width, Y = height); both must be at least 1.
func NewRandomErodeDilate(chance float64, kernelSize image.Point, opts ...Option) (*RandomErodeDilate, error) {
	b, _, err := newBase("RandomErodeDilate", chance, opts)
	if err != nil {
		return nil, err
	}
	if kernelSize.X < 1 || kernelSize.Y < 1 {
		return nil, rerrors.InvalidArgument("kernel size must be at least 1x1, got %dx%d", kernelSize.X, kernelSize.Y)
	}
	return &RandomErodeDilate{base: b, kernelSize: kernelSize}, nil
}

// KernelSize returns the kernel dimensions.
func (r *RandomErodeDilate) KernelSize() image.Point { return r.kernelSize }

// Augment picks erosion or dilation with a 50/50 draw.
func (r *RandomErodeDilate) Augment(img wrimage.Image, rng *rand.Rand) (wrimage.Image, error) {
	if rng.Float64() < 0.5 {
		r.logger.Debugw("eroding", "kernel", r.kernelSize)
		return r.Erode(img)
	}
	r.logger.Debugw("dilating", "kernel", r.kernelSize)
	return r.Dilate(img)
}

// Erode applies one iteration of erosion.
func (r *RandomErodeDilate) Erode(img wrimage.Image) (wrimage.Image, error) {
	return r.morph(img, gocv.Erode)
}

// Dilate applies one iteration of dilation.
func (r *RandomErodeDilate) Dilate(img wrimage.Image) (wrimage.Image, error) {
	return r.morph(img, gocv.Dilate)
}

func (r *RandomErodeDilate) morph(img wrimage.Image, op func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat)) (wrimage.Image, error) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, r.kernelSize)
	defer kernel.Close()

	dst := gocv.NewMat()
	op(img.Mat(), &dst, kernel)
	return img.Update(dst)
}
