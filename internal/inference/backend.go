// Package inference runs a CTC handwriting model over images and decodes the
// result to text.
package inference

import (
	"fmt"
	"math"

	rerrors "wordreader/internal/errors"
	"wordreader/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense float32 array in row-major order.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor checks that data fills shape exactly.
func NewTensor(shape []int, data []float32) (Tensor, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return Tensor{}, rerrors.InvalidArgument("tensor dimension must be positive, got shape %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return Tensor{}, rerrors.InvalidArgument("shape %v needs %d values, got %d", shape, n, len(data))
	}
	return Tensor{Shape: shape, Data: data}, nil
}

// Len is the number of elements implied by Shape.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Backend executes a model. Inputs are NHWC float32 batches; the output is
// (batch, time steps, classes).
type Backend interface {
	Forward(in Tensor) (Tensor, error)
	// InputShape is the model's NHWC input shape. Dynamic dimensions are
	// reported as values below 1.
	InputShape() []int
	Close() error
}

// OpenBackend loads the model artifact named by cfg with the backend it asks
// for. ortLibrary is the onnxruntime shared library, used only by the ONNX
// Runtime backend.
func OpenBackend(cfg *model.Config, ortLibrary string) (Backend, error) {
	path, err := cfg.ModelFile()
	if err != nil {
		return nil, err
	}

	switch cfg.BackendName() {
	case model.BackendOpenCV:
		return NewDNNBackend(path, cfg.Height, cfg.Width)
	case model.BackendONNXRuntime:
		return NewONNXBackend(path, ortLibrary)
	default:
		return nil, rerrors.ModelLoad(nil, "unknown backend %q", cfg.Backend)
	}
}

// batchMatrices splits a (batch, T, C) output into one T x C matrix per item.
// A 2-D (T, C) output is accepted for a batch of one.
func batchMatrices(out Tensor, batch int) ([]*mat.Dense, error) {
	shape := out.Shape
	if len(shape) == 2 && batch == 1 {
		shape = []int{1, shape[0], shape[1]}
	}
	if len(shape) != 3 || shape[0] != batch {
		return nil, rerrors.InvalidArgument("unexpected model output shape %v for batch of %d", out.Shape, batch)
	}
	steps, classes := shape[1], shape[2]
	if steps*classes*batch != len(out.Data) {
		return nil, rerrors.InvalidArgument("model output shape %v does not match %d values", out.Shape, len(out.Data))
	}

	mats := make([]*mat.Dense, batch)
	for b := 0; b < batch; b++ {
		vals := make([]float64, steps*classes)
		for i, v := range out.Data[b*steps*classes : (b+1)*steps*classes] {
			vals[i] = float64(v)
		}
		if steps == 0 || classes == 0 {
			mats[b] = &mat.Dense{}
			continue
		}
		mats[b] = mat.NewDense(steps, classes, vals)
	}
	return mats, nil
}

// softmaxRows normalises each row of logits into probabilities in place.
func softmaxRows(m *mat.Dense) {
	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		lse := floats.LogSumExp(row)
		floats.AddConst(-lse, row)
		for i, v := range row {
			row[i] = math.Exp(v)
		}
	}
}

func (t Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Shape)
}
