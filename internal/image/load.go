package image

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"os"

	rerrors "wordreader/internal/errors"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type options struct {
	color ColorSpace
	path  string
}

func defaultOptions() options {
	return options{color: BGR}
}

// Option customises image construction.
type Option func(*options)

// WithColor sets the colour-space tag of an in-memory buffer. Defaults to BGR.
func WithColor(cs ColorSpace) Option {
	return func(o *options) { o.color = cs }
}

// WithPath records the origin path of an in-memory buffer.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// Load reads an image file with OpenCV as a 3-channel BGR buffer. Options
// other than the path are ignored.
func Load(path string, opts ...Option) (*CVImage, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, rerrors.NotFound("image %s not found", path)
		}
		return nil, rerrors.Wrap(rerrors.CodeNotFound, err, "image %s not accessible", path)
	}

	m := gocv.IMRead(path, gocv.IMReadColor)
	if m.Empty() {
		m.Close()
		return nil, rerrors.Decode("failed to decode image %s", path)
	}

	return FromMat(m, WithColor(BGR), WithPath(path))
}

// Decode reads an encoded image (png, jpeg, gif, bmp, tiff, webp) from r.
func Decode(r io.Reader, opts ...Option) (*CVImage, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.CodeDecode, err, "failed to decode image")
	}
	return FromImage(img, opts...)
}

// FromImage converts a Go image into a BGR buffer. Alpha is dropped.
func FromImage(img image.Image, opts ...Option) (*CVImage, error) {
	if img == nil {
		return nil, rerrors.Type("image is nil")
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, rerrors.Decode("image has no pixels")
	}

	rgba, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, nrgba.Pix)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.CodeType, err, "failed to wrap pixel buffer")
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return FromMat(bgr, WithColor(BGR), WithPath(o.path))
}

// New builds an image from a path, a gocv.Mat, an image.Image, encoded bytes
// or an io.Reader. Any other source fails with a TYPE error.
func New(src interface{}, opts ...Option) (*CVImage, error) {
	switch v := src.(type) {
	case string:
		return Load(v, opts...)
	case gocv.Mat:
		return FromMat(v, opts...)
	case *gocv.Mat:
		if v == nil {
			return nil, rerrors.Type("image must be either path to image or gocv.Mat, not nil")
		}
		return FromMat(*v, opts...)
	case image.Image:
		return FromImage(v, opts...)
	case []byte:
		return Decode(bytes.NewReader(v), opts...)
	case io.Reader:
		return Decode(v, opts...)
	default:
		return nil, rerrors.Type("image must be either path to image or gocv.Mat, not %T", src)
	}
}
