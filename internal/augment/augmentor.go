// Package augment implements the random image augmentors used while preparing
// training data: brightness, erode/dilate and sharpen.
//
// Each augmentor has an application probability. Augment always applies the
// transform; Apply and Pipeline.Run draw from the injected random source first
// and skip the transform when the draw misses. Augmentors mutate the image in
// place, return the same handle and never change its dimensions.
package augment

import (
	"math"
	"math/rand"
	"time"

	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"
	"wordreader/internal/logging"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Augmentor is a random image transform.
type Augmentor interface {
	// Name identifies the augmentor in logs and configs.
	Name() string
	// Chance is the probability in [0,1] that Apply runs the transform.
	Chance() float64
	// Augment applies the transform unconditionally.
	Augment(img wrimage.Image, rng *rand.Rand) (wrimage.Image, error)
}

type settings struct {
	logger *zap.SugaredLogger
	kernel *mat.Dense
	anchor *mat.Dense
}

// Option customises an augmentor.
type Option func(*settings)

// WithLogger sets the logger. Augmentors log at debug level.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *settings) { s.logger = l }
}

// base holds what every augmentor shares.
type base struct {
	name   string
	chance float64
	logger *zap.SugaredLogger
}

func newBase(name string, chance float64, opts []Option) (base, settings, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if math.IsNaN(chance) || chance < 0 || chance > 1 {
		return base{}, s, rerrors.InvalidArgument("%s: random chance must be between 0.0 and 1.0, got %v", name, chance)
	}
	return base{
		name:   name,
		chance: chance,
		logger: logging.Named(s.logger, name),
	}, s, nil
}

func (b base) Name() string    { return b.name }
func (b base) Chance() float64 { return b.chance }

// Apply runs a on img when a uniform draw from rng falls below a.Chance().
// The boolean reports whether the transform ran.
func Apply(a Augmentor, img wrimage.Image, rng *rand.Rand) (wrimage.Image, bool, error) {
	if rng.Float64() >= a.Chance() {
		return img, false, nil
	}
	out, err := a.Augment(img, rng)
	if err != nil {
		return img, false, err
	}
	return out, true, nil
}

// uniform draws from [lo, hi).
func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// NewRand returns a random source seeded with seed, or with the clock when
// seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Pipeline applies augmentors in order, each gated by its own chance.
type Pipeline struct {
	augmentors []Augmentor
	rng        *rand.Rand
	logger     *zap.SugaredLogger
}

// NewPipeline creates a pipeline. A nil rng is replaced by a clock-seeded one.
func NewPipeline(rng *rand.Rand, logger *zap.SugaredLogger, augmentors ...Augmentor) *Pipeline {
	if rng == nil {
		rng = NewRand(0)
	}
	return &Pipeline{
		augmentors: augmentors,
		rng:        rng,
		logger:     logging.Named(logger, "pipeline"),
	}
}

// Len returns the number of augmentors.
func (p *Pipeline) Len() int {
	return len(p.augmentors)
}

// Augmentors returns the augmentors in application order.
func (p *Pipeline) Augmentors() []Augmentor {
	return append([]Augmentor(nil), p.augmentors...)
}

// Run applies every augmentor to img and returns the names of those that ran.
func (p *Pipeline) Run(img wrimage.Image) (wrimage.Image, []string, error) {
	var applied []string
	for _, a := range p.augmentors {
		out, ok, err := Apply(a, img, p.rng)
		if err != nil {
			return img, applied, err
		}
		img = out
		if ok {
			applied = append(applied, a.Name())
		}
	}
	p.logger.Debugw("augmented", "image", img.Path(), "applied", applied)
	return img, applied, nil
}
