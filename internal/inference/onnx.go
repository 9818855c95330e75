package inference

import (
	"os"
	"runtime"
	"sync"

	rerrors "wordreader/internal/errors"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// DefaultONNXRuntimeLibrary is the shared library name for the current OS.
func DefaultONNXRuntimeLibrary() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// initONNXRuntime loads the shared library once per process. Later calls
// return the first result whatever library they name.
func initONNXRuntime(library string) error {
	ortOnce.Do(func() {
		if library == "" {
			library = DefaultONNXRuntimeLibrary()
		}
		ort.SetSharedLibraryPath(library)
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXBackend runs a model with ONNX Runtime.
type ONNXBackend struct {
	session *ort.DynamicAdvancedSession
	options *ort.SessionOptions
	shape   []int
}

var _ Backend = (*ONNXBackend)(nil)

// NewONNXBackend opens modelPath with the first input and first output of the
// graph.
func NewONNXBackend(modelPath, library string) (*ONNXBackend, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, rerrors.ModelLoad(err, "model %s not accessible", modelPath)
	}
	if err := initONNXRuntime(library); err != nil {
		return nil, rerrors.ModelLoad(err, "initialize onnxruntime")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, rerrors.ModelLoad(err, "read model info %s", modelPath)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, rerrors.ModelLoad(nil, "model %s has no inputs or outputs", modelPath)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, rerrors.ModelLoad(err, "create session options")
	}
	_ = options.SetIntraOpNumThreads(1)
	_ = options.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, options)
	if err != nil {
		options.Destroy()
		return nil, rerrors.ModelLoad(err, "create session for %s", modelPath)
	}

	shape := make([]int, len(inputs[0].Dimensions))
	for i, d := range inputs[0].Dimensions {
		shape[i] = int(d)
	}
	return &ONNXBackend{session: session, options: options, shape: shape}, nil
}

func (b *ONNXBackend) InputShape() []int {
	return append([]int(nil), b.shape...)
}

func (b *ONNXBackend) Forward(in Tensor) (Tensor, error) {
	dims := make([]int64, len(in.Shape))
	for i, d := range in.Shape {
		dims[i] = int64(d)
	}
	input, err := ort.NewTensor(ort.NewShape(dims...), in.Data)
	if err != nil {
		return Tensor{}, rerrors.InvalidArgument("input %v: %v", in, err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := b.session.Run([]ort.Value{input}, outputs); err != nil {
		return Tensor{}, err
	}
	if outputs[0] == nil {
		return Tensor{}, rerrors.InvalidArgument("model produced no output")
	}
	defer outputs[0].Destroy()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return Tensor{}, rerrors.Type("model output is not float32")
	}
	outShape := out.GetShape()
	shape := make([]int, len(outShape))
	for i, d := range outShape {
		shape[i] = int(d)
	}
	return Tensor{Shape: shape, Data: append([]float32(nil), out.GetData()...)}, nil
}

func (b *ONNXBackend) Close() error {
	var err error
	if b.session != nil {
		err = b.session.Destroy()
	}
	if b.options != nil {
		if e := b.options.Destroy(); err == nil {
			err = e
		}
	}
	return err
}
