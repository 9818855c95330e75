package augment

import (
	"fmt"
	"image"
	"os"
	"strings"

	rerrors "wordreader/internal/errors"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Augmentor type names accepted in configs.
const (
	TypeBrightness  = "brightness"
	TypeErodeDilate = "erode_dilate"
	TypeSharpen     = "sharpen"
)

// BrightnessParams configures RandomBrightness.
type BrightnessParams struct {
	Chance float64 `yaml:"chance"`
	Delta  float64 `yaml:"delta"`
}

// DefaultBrightnessParams returns the usual handwriting settings.
func DefaultBrightnessParams() BrightnessParams {
	return BrightnessParams{Chance: 0.5, Delta: 100}
}

// ErodeDilateParams configures RandomErodeDilate.
type ErodeDilateParams struct {
	Chance float64 `yaml:"chance"`
	// Kernel is [width, height].
	Kernel [2]int `yaml:"kernel"`
}

// DefaultErodeDilateParams returns a 1x1 kernel, which leaves thin strokes
// intact. Handwriting sets usually raise it to 2x2 or 3x3.
func DefaultErodeDilateParams() ErodeDilateParams {
	return ErodeDilateParams{Chance: 0.5, Kernel: [2]int{1, 1}}
}

// SharpenParams configures RandomSharpen.
type SharpenParams struct {
	Chance    float64    `yaml:"chance"`
	Alpha     float64    `yaml:"alpha"`
	Lightness [2]float64 `yaml:"lightness"`
}

// DefaultSharpenParams returns a mild sharpen.
func DefaultSharpenParams() SharpenParams {
	return SharpenParams{Chance: 0.5, Alpha: 0.25, Lightness: [2]float64{0.75, 2.0}}
}

// Spec is one augmentor entry in a Config. Only the fields for Type are used;
// omitted fields keep their defaults.
type Spec struct {
	Type      string      `yaml:"type"`
	Chance    *float64    `yaml:"chance,omitempty"`
	Delta     *float64    `yaml:"delta,omitempty"`
	Kernel    *[2]int     `yaml:"kernel,omitempty"`
	Alpha     *float64    `yaml:"alpha,omitempty"`
	Lightness *[2]float64 `yaml:"lightness,omitempty"`
}

// Config describes a pipeline:
//
//	seed: 42
//	augmentors:
//	  - type: brightness
//	    chance: 0.5
//	    delta: 100
//	  - type: erode_dilate
//	    kernel: [2, 2]
//	  - type: sharpen
//	    alpha: 0.25
//	    lightness: [0.75, 2.0]
type Config struct {
	// Seed for the pipeline's random source; 0 seeds from the clock.
	Seed       int64  `yaml:"seed"`
	Augmentors []Spec `yaml:"augmentors"`
}

// DefaultConfig returns all three augmentors with default parameters.
func DefaultConfig() *Config {
	return &Config{
		Augmentors: []Spec{
			{Type: TypeBrightness},
			{Type: TypeErodeDilate},
			{Type: TypeSharpen},
		},
	}
}

// LoadConfig reads a YAML pipeline description.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read augmentation config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML pipeline description.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, rerrors.Wrap(rerrors.CodeInvalidArgument, err, "failed to parse augmentation config")
	}
	return &cfg, nil
}

// Build constructs each augmentor and returns them as a pipeline.
func (c *Config) Build(logger *zap.SugaredLogger) (*Pipeline, error) {
	augmentors := make([]Augmentor, 0, len(c.Augmentors))
	for i, spec := range c.Augmentors {
		a, err := spec.build(logger)
		if err != nil {
			return nil, fmt.Errorf("augmentor %d: %w", i, err)
		}
		augmentors = append(augmentors, a)
	}
	return NewPipeline(NewRand(c.Seed), logger, augmentors...), nil
}

func (s Spec) build(logger *zap.SugaredLogger) (Augmentor, error) {
	opts := []Option{WithLogger(logger)}

	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case TypeBrightness:
		p := DefaultBrightnessParams()
		setFloat(&p.Chance, s.Chance)
		setFloat(&p.Delta, s.Delta)
		return NewRandomBrightness(p.Chance, p.Delta, opts...)

	case TypeErodeDilate:
		p := DefaultErodeDilateParams()
		setFloat(&p.Chance, s.Chance)
		if s.Kernel != nil {
			p.Kernel = *s.Kernel
		}
		return NewRandomErodeDilate(p.Chance, image.Pt(p.Kernel[0], p.Kernel[1]), opts...)

	case TypeSharpen:
		p := DefaultSharpenParams()
		setFloat(&p.Chance, s.Chance)
		setFloat(&p.Alpha, s.Alpha)
		if s.Lightness != nil {
			p.Lightness = *s.Lightness
		}
		return NewRandomSharpen(p.Chance, p.Alpha, p.Lightness, opts...)

	default:
		return nil, rerrors.InvalidArgument("unknown augmentor type %q", s.Type)
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
