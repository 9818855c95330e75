// Package model reads the configuration that ships next to a trained
// recognition model.
package model

import (
	"os"
	"path/filepath"
	"strings"

	"wordreader/internal/ctc"
	rerrors "wordreader/internal/errors"

	"gopkg.in/yaml.v3"
)

// DefaultModelFile is looked up when model_path names a directory.
const DefaultModelFile = "model.onnx"

// Backend names accepted in configs.yaml.
const (
	BackendOpenCV      = "opencv"
	BackendONNXRuntime = "onnxruntime"
)

// Vocab is the ordered symbol list. In YAML it is either a string, one
// symbol per character, or a list of strings.
type Vocab []string

// UnmarshalYAML accepts both vocabulary forms.
func (v *Vocab) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		out := make(Vocab, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		*v = out
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = list
		return nil
	default:
		return rerrors.InvalidArgument("vocab must be a string or a list, line %d", node.Line)
	}
}

// Config mirrors configs.yaml. Keys used only for training are ignored.
type Config struct {
	ModelPath     string            `yaml:"model_path"`
	Vocab         Vocab             `yaml:"vocab"`
	Height        int               `yaml:"height"`
	Width         int               `yaml:"width"`
	MaxTextLength int               `yaml:"max_text_length"`
	Blank         ctc.BlankPosition `yaml:"blank"`
	Backend       string            `yaml:"backend"`

	dir string
}

// Load reads and validates a configs.yaml file. Every failure is reported as
// ErrModelLoad.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rerrors.ModelLoad(err, "read model config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, rerrors.ModelLoad(err, "parse model config %s", path)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes configs.yaml content. Relative model paths resolve against
// the working directory only.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields inference depends on.
func (c *Config) Validate() error {
	if len(c.Vocab) == 0 {
		return rerrors.InvalidArgument("vocab is empty")
	}
	if c.Height < 0 || c.Width < 0 {
		return rerrors.InvalidArgument("input size must not be negative, got %dx%d", c.Width, c.Height)
	}
	switch c.Blank {
	case "", ctc.BlankFirst, ctc.BlankLast:
	default:
		return rerrors.InvalidArgument("blank must be %q or %q, got %q", ctc.BlankFirst, ctc.BlankLast, c.Blank)
	}
	switch strings.ToLower(c.Backend) {
	case "", BackendOpenCV, BackendONNXRuntime:
	default:
		return rerrors.InvalidArgument("unknown backend %q", c.Backend)
	}
	return nil
}

// Dir is the directory the config was loaded from, empty for Parse.
func (c *Config) Dir() string { return c.dir }

// BackendName returns the configured backend, defaulting to OpenCV.
func (c *Config) BackendName() string {
	if c.Backend == "" {
		return BackendOpenCV
	}
	return strings.ToLower(c.Backend)
}

// Alphabet builds the CTC alphabet for the configured vocabulary.
func (c *Config) Alphabet() (*ctc.Alphabet, error) {
	return ctc.NewAlphabet(c.Vocab, c.Blank)
}

// ModelFile locates the model artifact. model_path is tried as given, then
// relative to the config directory; an empty model_path means the config
// directory itself. A directory resolves to DefaultModelFile inside it.
func (c *Config) ModelFile() (string, error) {
	var candidates []string
	switch {
	case c.ModelPath == "":
		candidates = append(candidates, c.dir)
	case filepath.IsAbs(c.ModelPath):
		candidates = append(candidates, c.ModelPath)
	default:
		candidates = append(candidates, c.ModelPath)
		if c.dir != "" {
			candidates = append(candidates, filepath.Join(c.dir, c.ModelPath), c.dir)
		}
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if info.IsDir() {
			p = filepath.Join(p, DefaultModelFile)
			if info, err = os.Stat(p); err != nil || info.IsDir() {
				continue
			}
		}
		return p, nil
	}
	return "", rerrors.ModelLoad(nil, "no model file found for model_path %q", c.ModelPath)
}
