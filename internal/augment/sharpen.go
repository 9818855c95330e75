package augment

import (
	"image"
	"math/rand"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// lightnessAnchor is added to the drawn lightness at the kernel centre.
const lightnessAnchor = 8

// DefaultSharpenKernel is the high-pass kernel blended into the anchor.
func DefaultSharpenKernel() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		-1, -1, -1,
		-1, 1, -1,
		-1, -1, -1,
	})
}

// DefaultSharpenAnchor is the identity kernel.
func DefaultSharpenAnchor() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, 0, 0,
		0, 1, 0,
		0, 0, 0,
	})
}

// WithKernel replaces the high-pass kernel of RandomSharpen.
func WithKernel(k *mat.Dense) Option {
	return func(s *settings) { s.kernel = k }
}

// WithKernelAnchor replaces the identity anchor of RandomSharpen.
func WithKernelAnchor(k *mat.Dense) Option {
	return func(s *settings) { s.anchor = k }
}

// RandomSharpen convolves every colour channel with a randomly blended
// sharpening kernel.
type RandomSharpen struct {
	base
	alphaRange     [2]float64
	lightnessRange [2]float64
	kernel         *mat.Dense
	anchor         *mat.Dense
}

// NewRandomSharpen creates the augmentor. The blend factor is drawn from
// [alpha, 1] and the lightness from lightness[0]..lightness[1].
func NewRandomSharpen(chance, alpha float64, lightness [2]float64, opts ...Option) (*RandomSharpen, error) {
	b, s, err := newBase("RandomSharpen", chance, opts)
	if err != nil {
		return nil, err
	}
	if !(alpha >= 0 && alpha <= 1) {
		return nil, rerrors.InvalidArgument("alpha must be between 0.0 and 1.0, got %v", alpha)
	}
	if !(lightness[0] <= lightness[1]) {
		return nil, rerrors.InvalidArgument("lightness range must be ordered, got %v", lightness)
	}

	kernel, anchor := s.kernel, s.anchor
	if kernel == nil {
		kernel = DefaultSharpenKernel()
	}
	if anchor == nil {
		anchor = DefaultSharpenAnchor()
	}
	kr, kc := kernel.Dims()
	ar, ac := anchor.Dims()
	if kr != ar || kc != ac {
		return nil, rerrors.InvalidArgument("kernel %dx%d and anchor %dx%d differ in shape", kr, kc, ar, ac)
	}

	return &RandomSharpen{
		base:           b,
		alphaRange:     [2]float64{alpha, 1.0},
		lightnessRange: lightness,
		kernel:         mat.DenseCopyOf(kernel),
		anchor:         mat.DenseCopyOf(anchor),
	}, nil
}

// Kernel builds the convolution kernel for a lightness and blend factor:
//
//	k = anchor*(8+lightness) + kernel - anchor
//	k = (1-alpha)*anchor + alpha*k
func (r *RandomSharpen) Kernel(lightness, alpha float64) *mat.Dense {
	var k mat.Dense
	k.Scale(lightnessAnchor+lightness, r.anchor)
	k.Add(&k, r.kernel)
	k.Sub(&k, r.anchor)

	var keep mat.Dense
	keep.Scale(1-alpha, r.anchor)
	k.Scale(alpha, &k)
	k.Add(&keep, &k)
	return &k
}

// Augment draws lightness and alpha, then applies Sharpen.
func (r *RandomSharpen) Augment(img wrimage.Image, rng *rand.Rand) (wrimage.Image, error) {
	lightness := uniform(rng, r.lightnessRange[0], r.lightnessRange[1])
	alpha := uniform(rng, r.alphaRange[0], r.alphaRange[1])
	r.logger.Debugw("sharpening", "lightness", lightness, "alpha", alpha)
	return r.Sharpen(img, r.Kernel(lightness, alpha))
}

// Sharpen convolves each of the three channels with the same kernel and
// merges them back. Other channel counts are rejected.
func (r *RandomSharpen) Sharpen(img wrimage.Image, kernel mat.Matrix) (wrimage.Image, error) {
	if img.Channels() != 3 {
		return img, rerrors.InvalidArgument("sharpen needs a 3-channel image, got %d channels", img.Channels())
	}

	km := denseToMat(kernel)
	defer km.Close()

	channels := gocv.Split(img.Mat())
	sharp := make([]gocv.Mat, len(channels))
	for i, ch := range channels {
		sharp[i] = gocv.NewMat()
		gocv.Filter2D(ch, &sharp[i], -1, km, image.Pt(-1, -1), 0, gocv.BorderDefault)
		ch.Close()
	}

	merged := gocv.NewMat()
	gocv.Merge(sharp, &merged)
	for i := range sharp {
		sharp[i].Close()
	}
	return img.Update(merged)
}

func denseToMat(m mat.Matrix) gocv.Mat {
	rows, cols := m.Dims()
	out := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.SetFloatAt(i, j, float32(m.At(i, j)))
		}
	}
	return out
}
