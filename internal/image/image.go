// Package image provides the Mat-backed image value object used by the
// augmentors, the resizer and the predictor.
package image

import (
	"fmt"
	"image"

	rerrors "wordreader/internal/errors"

	"gocv.io/x/gocv"
)

// ColorSpace tags the channel order of a 3-channel buffer.
type ColorSpace string

const (
	RGB ColorSpace = "RGB"
	BGR ColorSpace = "BGR"
)

// Shape is the (height, width, channels) triple of a buffer.
type Shape struct {
	Height   int
	Width    int
	Channels int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// Image is the capability set shared by every image implementation: geometry
// queries, colour-space conversion, mutation and raw buffer access.
//
// Update and Flip mutate in place and return the same handle so calls chain.
// Conversions return new Mats owned by the caller.
type Image interface {
	Shape() Shape
	Width() int
	Height() int
	Channels() int
	Center() image.Point
	Color() ColorSpace
	Path() string

	RGB() (gocv.Mat, error)
	BGR() (gocv.Mat, error)
	HSV() (gocv.Mat, error)

	Update(m gocv.Mat) (Image, error)
	Flip(axis int) (Image, error)
	Clone() Image

	// Mat returns the underlying buffer. The image keeps ownership.
	Mat() gocv.Mat
	Close() error
}

// CVImage is an Image backed by a gocv.Mat.
type CVImage struct {
	mat      gocv.Mat
	width    int
	height   int
	channels int
	color    ColorSpace
	path     string
}

var _ Image = (*CVImage)(nil)

// FromMat wraps m. The image takes ownership of m and closes it on Update or
// Close. Only 8-bit buffers with 1, 3 or 4 channels are accepted.
func FromMat(m gocv.Mat, opts ...Option) (*CVImage, error) {
	if err := checkBuffer(m); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	img := &CVImage{color: o.color, path: o.path}
	img.set(m)
	return img, nil
}

func checkBuffer(m gocv.Mat) error {
	if m.Empty() {
		return rerrors.Type("image buffer is empty")
	}
	if depth := m.Type() & 7; depth != gocv.MatTypeCV8U {
		return rerrors.Type("image buffer must be 8-bit, got mat type %d", m.Type())
	}
	switch m.Channels() {
	case 1, 3, 4:
		return nil
	default:
		return rerrors.Type("unsupported channel count %d", m.Channels())
	}
}

// set replaces the buffer and re-derives the cached dimensions together.
func (c *CVImage) set(m gocv.Mat) {
	c.mat = m
	c.height = m.Rows()
	c.width = m.Cols()
	c.channels = m.Channels()
}

func (c *CVImage) Shape() Shape {
	return Shape{Height: c.height, Width: c.width, Channels: c.channels}
}

func (c *CVImage) Width() int        { return c.width }
func (c *CVImage) Height() int       { return c.height }
func (c *CVImage) Channels() int     { return c.channels }
func (c *CVImage) Color() ColorSpace { return c.color }
func (c *CVImage) Path() string      { return c.path }
func (c *CVImage) Mat() gocv.Mat     { return c.mat }

// Center returns (width/2, height/2) using integer division.
func (c *CVImage) Center() image.Point {
	return image.Pt(c.width/2, c.height/2)
}

// RGB returns the buffer in RGB channel order.
func (c *CVImage) RGB() (gocv.Mat, error) {
	switch c.color {
	case RGB:
		if err := c.requireColor(); err != nil {
			return gocv.NewMat(), err
		}
		return c.mat.Clone(), nil
	case BGR:
		return c.convert(gocv.ColorBGRToRGB)
	default:
		return gocv.NewMat(), rerrors.InvalidColorSpace("unknown color format %q", c.color)
	}
}

// BGR returns the buffer in BGR channel order.
func (c *CVImage) BGR() (gocv.Mat, error) {
	switch c.color {
	case BGR:
		if err := c.requireColor(); err != nil {
			return gocv.NewMat(), err
		}
		return c.mat.Clone(), nil
	case RGB:
		return c.convert(gocv.ColorRGBToBGR)
	default:
		return gocv.NewMat(), rerrors.InvalidColorSpace("unknown color format %q", c.color)
	}
}

// HSV returns the buffer converted to 8-bit HSV (H 0-180).
func (c *CVImage) HSV() (gocv.Mat, error) {
	switch c.color {
	case BGR:
		return c.convert(gocv.ColorBGRToHSV)
	case RGB:
		return c.convert(gocv.ColorRGBToHSV)
	default:
		return gocv.NewMat(), rerrors.InvalidColorSpace("unknown color format %q", c.color)
	}
}

func (c *CVImage) requireColor() error {
	if c.channels != 3 {
		return rerrors.InvalidArgument("color conversion needs 3 channels, image has %d", c.channels)
	}
	return nil
}

func (c *CVImage) convert(code gocv.ColorConversionCode) (gocv.Mat, error) {
	if err := c.requireColor(); err != nil {
		return gocv.NewMat(), err
	}
	dst := gocv.NewMat()
	gocv.CvtColor(c.mat, &dst, code)
	return dst, nil
}

// Update replaces the pixel buffer with m, taking ownership of it, and
// recomputes width, height and channels. The previous buffer is closed unless
// it is m itself.
func (c *CVImage) Update(m gocv.Mat) (Image, error) {
	if err := checkBuffer(m); err != nil {
		return c, err
	}
	if c.mat.Ptr() != m.Ptr() {
		c.mat.Close()
	}
	c.set(m)
	return c, nil
}

// Flip mirrors the image. Axis 0 mirrors left-right, axis 1 top-bottom.
func (c *CVImage) Flip(axis int) (Image, error) {
	var code int
	switch axis {
	case 0:
		code = 1
	case 1:
		code = 0
	default:
		return c, rerrors.InvalidArgument("axis must be either 0 or 1, not %d", axis)
	}

	dst := gocv.NewMat()
	gocv.Flip(c.mat, &dst, code)
	return c.Update(dst)
}

// Clone returns a deep copy with the same tag and path.
func (c *CVImage) Clone() Image {
	cp := &CVImage{color: c.color, path: c.path}
	cp.set(c.mat.Clone())
	return cp
}

func (c *CVImage) Close() error {
	return c.mat.Close()
}

func (c *CVImage) String() string {
	if c.path != "" {
		return fmt.Sprintf("%s (%s %s)", c.path, c.Shape(), c.color)
	}
	return fmt.Sprintf("%s %s", c.Shape(), c.color)
}
