package augment

import (
	"math/rand"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"

	"gocv.io/x/gocv"
)

// RandomBrightness scales the saturation and value channels by a random
// multiplier centred at 1.0.
type RandomBrightness struct {
	base
	delta float64
}

// NewRandomBrightness creates the augmentor. delta in [0,255] bounds the
// multiplier to 1 ± delta/255.
func NewRandomBrightness(chance, delta float64, opts ...Option) (*RandomBrightness, error) {
	b, _, err := newBase("RandomBrightness", chance, opts)
	if err != nil {
		return nil, err
	}
	if !(delta >= 0 && delta <= 255) {
		return nil, rerrors.InvalidArgument("delta must be between 0.0 and 255.0, got %v", delta)
	}
	return &RandomBrightness{base: b, delta: delta}, nil
}

// Delta returns the configured delta.
func (r *RandomBrightness) Delta() float64 { return r.delta }

// Augment draws a multiplier and applies Adjust.
func (r *RandomBrightness) Augment(img wrimage.Image, rng *rand.Rand) (wrimage.Image, error) {
	value := 1 + uniform(rng, -r.delta, r.delta)/255
	r.logger.Debugw("adjusting brightness", "multiplier", value)
	return r.Adjust(img, value)
}

// Adjust multiplies S and V by value, clipping to [0,255], and converts the
// result back to the image's own colour space.
func (r *RandomBrightness) Adjust(img wrimage.Image, value float64) (wrimage.Image, error) {
	back := gocv.ColorHSVToBGR
	if img.Color() == wrimage.RGB {
		back = gocv.ColorHSVToRGB
	}

	hsv, err := img.HSV()
	if err != nil {
		return img, err
	}
	defer hsv.Close()

	f := gocv.NewMat()
	defer f.Close()
	hsv.ConvertTo(&f, gocv.MatTypeCV32FC3)

	channels := gocv.Split(f)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()
	channels[1].MultiplyFloat(float32(value))
	channels[2].MultiplyFloat(float32(value))

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	// Conversion to 8 bits saturates, which clips to [0,255].
	scaled := gocv.NewMat()
	defer scaled.Close()
	merged.ConvertTo(&scaled, gocv.MatTypeCV8UC3)

	out := gocv.NewMat()
	gocv.CvtColor(scaled, &out, back)
	return img.Update(out)
}
