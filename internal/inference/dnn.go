package inference

import (
	rerrors "wordreader/internal/errors"

	"gocv.io/x/gocv"
)

// DNNBackend runs a model through OpenCV's dnn module.
type DNNBackend struct {
	net   gocv.Net
	shape []int
}

var _ Backend = (*DNNBackend)(nil)

// NewDNNBackend loads any model OpenCV can read (ONNX, TensorFlow pb,
// Caffe, ...). OpenCV does not expose input shapes, so height and width come
// from the model configuration; zero leaves them dynamic.
func NewDNNBackend(modelPath string, height, width int) (*DNNBackend, error) {
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		net.Close()
		return nil, rerrors.ModelLoad(nil, "opencv could not read model %s", modelPath)
	}
	return &DNNBackend{net: net, shape: []int{-1, height, width, 3}}, nil
}

func (b *DNNBackend) InputShape() []int {
	return append([]int(nil), b.shape...)
}

// Forward copies in into an N-dimensional blob and runs the network.
func (b *DNNBackend) Forward(in Tensor) (Tensor, error) {
	if in.Len() != len(in.Data) || len(in.Data) == 0 {
		return Tensor{}, rerrors.InvalidArgument("input %v does not match %d values", in, len(in.Data))
	}

	blob := gocv.NewMatWithSizes(in.Shape, gocv.MatTypeCV32F)
	defer blob.Close()
	dst, err := blob.DataPtrFloat32()
	if err != nil {
		return Tensor{}, err
	}
	copy(dst, in.Data)

	b.net.SetInput(blob, "")
	out := b.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return Tensor{}, rerrors.InvalidArgument("model produced no output")
	}

	vals, err := out.DataPtrFloat32()
	if err != nil {
		return Tensor{}, err
	}
	return Tensor{Shape: out.Size(), Data: append([]float32(nil), vals...)}, nil
}

func (b *DNNBackend) Close() error {
	return b.net.Close()
}
