package inference

import (
	"strings"

	rerrors "wordreader/internal/errors"
	"wordreader/internal/model"
)

// Engine names accepted by OpenRecognizer.
const (
	EngineCTC       = "ctc"
	EngineTesseract = "tesseract"
)

// OpenRecognizer builds the named engine. The CTC engine loads the model
// described by configPath. The Tesseract engine uses the same config, when it
// loads, only to restrict output to the model vocabulary.
func OpenRecognizer(engine, configPath, language string, opts ...Option) (Recognizer, error) {
	switch strings.ToLower(engine) {
	case "", EngineCTC:
		return Open(configPath, opts...)
	case EngineTesseract:
		var whitelist string
		if cfg, err := model.Load(configPath); err == nil {
			whitelist = strings.Join(cfg.Vocab, "")
		}
		return NewTesseract(language, whitelist)
	default:
		return nil, rerrors.InvalidArgument("unknown engine %q, want %s or %s", engine, EngineCTC, EngineTesseract)
	}
}
