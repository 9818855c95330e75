package augment

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	rerrors "wordreader/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pipelineYAML = `
seed: 42
augmentors:
  - type: brightness
    chance: 0.3
    delta: 40
  - type: erode_dilate
    kernel: [2, 3]
  - type: Sharpen
    alpha: 0.5
    lightness: [1.0, 1.5]
`

func TestParseAndBuild(t *testing.T) {
	cfg, err := ParseConfig([]byte(pipelineYAML))
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	require.Len(t, cfg.Augmentors, 3)

	p, err := cfg.Build(nil)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	augs := p.Augmentors()
	b := augs[0].(*RandomBrightness)
	assert.Equal(t, 0.3, b.Chance())
	assert.Equal(t, 40.0, b.Delta())

	ed := augs[1].(*RandomErodeDilate)
	assert.Equal(t, DefaultErodeDilateParams().Chance, ed.Chance())
	assert.Equal(t, image.Pt(2, 3), ed.KernelSize())

	s := augs[2].(*RandomSharpen)
	assert.Equal(t, [2]float64{0.5, 1.0}, s.alphaRange)
	assert.Equal(t, [2]float64{1.0, 1.5}, s.lightnessRange)
}

func TestBuildRejectsUnknownAndInvalid(t *testing.T) {
	cfg, err := ParseConfig([]byte("augmentors:\n  - type: rotate\n"))
	require.NoError(t, err)
	_, err = cfg.Build(nil)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))

	cfg, err = ParseConfig([]byte("augmentors:\n  - type: brightness\n    chance: 2\n"))
	require.NoError(t, err)
	_, err = cfg.Build(nil)
	assert.True(t, errors.Is(err, rerrors.ErrInvalidArgument))

	_, err = ParseConfig([]byte("augmentors: {"))
	assert.Error(t, err)
}

func TestDefaultConfigAndLoad(t *testing.T) {
	p, err := DefaultConfig().Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	path := filepath.Join(t.TempDir(), "augment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Augmentors, 3)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
