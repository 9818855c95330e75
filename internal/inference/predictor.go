package inference

import (
	"fmt"
	"image/color"

	"wordreader/internal/ctc"
	rerrors "wordreader/internal/errors"
	wrimage "wordreader/internal/image"
	"wordreader/internal/logging"
	"wordreader/internal/model"
	"wordreader/internal/resize"
	"wordreader/pkg/colorutil"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Recognizer turns a word or line image into text.
type Recognizer interface {
	Predict(img wrimage.Image) (string, error)
	Close() error
}

// Predictor letterboxes images to the model input, runs the backend and
// decodes the output with CTC. It is read-only after construction.
type Predictor struct {
	backend  Backend
	alphabet *ctc.Alphabet
	decoder  ctc.Decoder
	resizer  *resize.Resizer
	channels int
	softmax  bool
	owns     bool
	logger   *zap.SugaredLogger

	ortLibrary string
	beamWidth  int
	padColor   color.RGBA
}

var _ Recognizer = (*Predictor)(nil)

// Option configures a Predictor.
type Option func(*Predictor)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Predictor) { p.logger = logging.Named(l, "predictor") }
}

// WithBeamSearch decodes with prefix beam search of the given width instead
// of greedy best path.
func WithBeamSearch(width int) Option {
	return func(p *Predictor) { p.beamWidth = width }
}

// WithSoftmax applies softmax to each output row, for models that emit logits.
func WithSoftmax() Option {
	return func(p *Predictor) { p.softmax = true }
}

// WithPadColor sets the letterbox padding colour. Defaults to black.
func WithPadColor(c color.RGBA) Option {
	return func(p *Predictor) { p.padColor = c }
}

// WithONNXRuntimeLibrary sets the onnxruntime shared library used by Open.
func WithONNXRuntimeLibrary(path string) Option {
	return func(p *Predictor) { p.ortLibrary = path }
}

// NewPredictor wraps backend. The input size is taken from the backend's
// input shape when it is fixed, otherwise from width and height.
func NewPredictor(backend Backend, alphabet *ctc.Alphabet, width, height int, opts ...Option) (*Predictor, error) {
	if backend == nil || alphabet == nil {
		return nil, rerrors.InvalidArgument("predictor needs a backend and an alphabet")
	}

	p := &Predictor{
		backend:  backend,
		alphabet: alphabet,
		channels: 3,
		logger:   logging.Nop(),
		padColor: colorutil.Black,
	}
	for _, opt := range opts {
		opt(p)
	}

	if shape := backend.InputShape(); len(shape) == 4 {
		if shape[1] > 0 && shape[2] > 0 {
			if (height > 0 && height != shape[1]) || (width > 0 && width != shape[2]) {
				p.logger.Warnf("configured input %dx%d differs from model input %dx%d, using the model's",
					width, height, shape[2], shape[1])
			}
			height, width = shape[1], shape[2]
		}
		if shape[3] == 1 || shape[3] == 3 {
			p.channels = shape[3]
		}
	}
	if width <= 0 || height <= 0 {
		return nil, rerrors.InvalidArgument("model input size unknown, got %dx%d", width, height)
	}

	p.resizer = resize.NewResizer(width, height)
	p.resizer.Fill = p.padColor

	if p.beamWidth > 0 {
		p.decoder = ctc.BeamSearch{Alphabet: alphabet, Width: p.beamWidth}
	} else {
		p.decoder = ctc.Greedy{Alphabet: alphabet}
	}

	p.logger.Debugw("predictor ready",
		"width", width, "height", height, "channels", p.channels,
		"classes", alphabet.Classes(), "blank", alphabet.Blank())
	return p, nil
}

// Open loads configs.yaml, the model it names and builds a Predictor that
// owns the backend.
func Open(configPath string, opts ...Option) (*Predictor, error) {
	cfg, err := model.Load(configPath)
	if err != nil {
		return nil, err
	}
	return OpenConfig(cfg, opts...)
}

// OpenConfig is Open for an already parsed configuration.
func OpenConfig(cfg *model.Config, opts ...Option) (*Predictor, error) {
	alphabet, err := cfg.Alphabet()
	if err != nil {
		return nil, rerrors.ModelLoad(err, "build alphabet")
	}

	probe := &Predictor{}
	for _, opt := range opts {
		opt(probe)
	}
	backend, err := OpenBackend(cfg, probe.ortLibrary)
	if err != nil {
		return nil, err
	}

	return ownPredictor(backend, alphabet, cfg, opts...)
}

// ownPredictor builds a Predictor that closes backend with it. A model whose
// input size neither the artifact nor cfg supplies cannot be loaded.
func ownPredictor(backend Backend, alphabet *ctc.Alphabet, cfg *model.Config, opts ...Option) (*Predictor, error) {
	p, err := NewPredictor(backend, alphabet, cfg.Width, cfg.Height, opts...)
	if err != nil {
		backend.Close()
		return nil, rerrors.ModelLoad(err, "model %s", cfg.ModelPath)
	}
	p.owns = true
	return p, nil
}

// InputSize is the model input width and height.
func (p *Predictor) InputSize() (int, int) {
	return p.resizer.Width, p.resizer.Height
}

// Alphabet is the decoding vocabulary.
func (p *Predictor) Alphabet() *ctc.Alphabet { return p.alphabet }

// Predict recognises the text in img. img is not modified.
func (p *Predictor) Predict(img wrimage.Image) (string, error) {
	texts, err := p.PredictBatch([]wrimage.Image{img})
	if err != nil {
		return "", err
	}
	return texts[0], nil
}

// PredictFile loads path and recognises its text.
func (p *Predictor) PredictFile(path string) (string, error) {
	img, err := wrimage.Load(path)
	if err != nil {
		return "", err
	}
	defer img.Close()
	return p.Predict(img)
}

// PredictBatch recognises every image with a single forward pass.
func (p *Predictor) PredictBatch(imgs []wrimage.Image) ([]string, error) {
	if len(imgs) == 0 {
		return nil, nil
	}

	width, height := p.InputSize()
	size := height * width * p.channels
	data := make([]float32, len(imgs)*size)
	for i, img := range imgs {
		if err := p.fill(img, data[i*size:(i+1)*size]); err != nil {
			return nil, fmt.Errorf("prepare image %d: %w", i, err)
		}
	}

	in := Tensor{Shape: []int{len(imgs), height, width, p.channels}, Data: data}
	out, err := p.backend.Forward(in)
	if err != nil {
		return nil, fmt.Errorf("forward %v: %w", in, err)
	}

	probs, err := batchMatrices(out, len(imgs))
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(probs))
	for i, m := range probs {
		if _, classes := m.Dims(); classes > p.alphabet.Classes() {
			p.logger.Debugw("model emits more classes than the vocabulary", "classes", classes, "vocabulary", p.alphabet.Classes())
		}
		if p.softmax {
			softmaxRows(m)
		}
		texts[i] = p.decoder.Decode(m)
	}
	return texts, nil
}

// fill writes img, letterboxed and in BGR order, into dst as float32 HWC.
func (p *Predictor) fill(img wrimage.Image, dst []float32) error {
	if img == nil {
		return rerrors.Type("image is nil")
	}
	bgr, err := toBGR(img)
	if err != nil {
		return err
	}
	defer bgr.Close()

	boxed, err := p.resizer.Resize(bgr, wrimage.BGR)
	if err != nil {
		return err
	}
	defer boxed.Close()

	if p.channels == 1 {
		gray := gocv.NewMat()
		gocv.CvtColor(boxed, &gray, gocv.ColorBGRToGray)
		boxed.Close()
		boxed = gray
	}

	f := gocv.NewMat()
	defer f.Close()
	boxed.ConvertTo(&f, gocv.MatTypeCV32F)

	vals, err := f.DataPtrFloat32()
	if err != nil {
		return err
	}
	if len(vals) != len(dst) {
		return rerrors.InvalidArgument("prepared input has %d values, want %d", len(vals), len(dst))
	}
	copy(dst, vals)
	return nil
}

// toBGR returns a 3-channel BGR copy of any supported image.
func toBGR(img wrimage.Image) (gocv.Mat, error) {
	switch img.Channels() {
	case 1:
		dst := gocv.NewMat()
		gocv.CvtColor(img.Mat(), &dst, gocv.ColorGrayToBGR)
		return dst, nil
	case 4:
		code := gocv.ColorBGRAToBGR
		if img.Color() == wrimage.RGB {
			code = gocv.ColorRGBAToBGR
		}
		dst := gocv.NewMat()
		gocv.CvtColor(img.Mat(), &dst, code)
		return dst, nil
	default:
		return img.BGR()
	}
}

// Close releases the backend when the Predictor was built by Open.
func (p *Predictor) Close() error {
	if p.owns {
		return p.backend.Close()
	}
	return nil
}
