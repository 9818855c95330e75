package inference

import (
	"fmt"
	"image"
	"strings"

	wrimage "wordreader/internal/image"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// minTesseractHeight is the height small crops are upscaled to before OCR.
const minTesseractHeight = 64

// Tesseract is a classical OCR baseline behind the Recognizer interface.
type Tesseract struct {
	client    *gosseract.Client
	whitelist string
}

var _ Recognizer = (*Tesseract)(nil)

// NewTesseract creates a Tesseract engine for language (e.g. "eng").
// A non-empty whitelist restricts output to those characters, typically the
// model vocabulary so both engines are scored on the same alphabet.
func NewTesseract(language, whitelist string) (*Tesseract, error) {
	client := gosseract.NewClient()

	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	// Each input is one handwritten line or word.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if whitelist != "" {
		if err := client.SetWhitelist(whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}

	return &Tesseract{client: client, whitelist: whitelist}, nil
}

// Predict runs Tesseract over img.
func (t *Tesseract) Predict(img wrimage.Image) (string, error) {
	bgr, err := toBGR(img)
	if err != nil {
		return "", err
	}
	defer bgr.Close()

	processed := preprocessForTesseract(bgr)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	if err := t.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// preprocessForTesseract upscales short crops and binarises with Otsu so ink
// is dark on a light background.
func preprocessForTesseract(src gocv.Mat) gocv.Mat {
	var scaled gocv.Mat
	if h := src.Rows(); h < minTesseractHeight {
		scale := float64(minTesseractHeight) / float64(h)
		scaled = gocv.NewMat()
		gocv.Resize(src, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = src.Clone()
	}
	defer scaled.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)

	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Light text on dark background: invert.
	if white := gocv.CountNonZero(binary); float64(white)/float64(binary.Total()) < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}

func (t *Tesseract) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}
