// Package dataset reads labelled image tables such as the val.csv written
// next to a trained model.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	rerrors "wordreader/internal/errors"
)

// Sample is one labelled image.
type Sample struct {
	Path  string
	Label string
}

type options struct {
	baseDir string
	limit   int
	header  *bool
}

// Option configures loading.
type Option func(*options)

// WithBaseDir resolves relative image paths against dir.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithLimit stops after n samples. Zero or less means no limit.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

// WithHeader says whether the first row is a header. Without it the first
// row is skipped only when it looks like one.
func WithHeader(present bool) Option {
	return func(o *options) { o.header = &present }
}

// HeaderOption maps a -header flag value of auto, yes or no to an Option.
func HeaderOption(mode string) (Option, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return func(*options) {}, nil
	case "yes", "true":
		return WithHeader(true), nil
	case "no", "false":
		return WithHeader(false), nil
	default:
		return nil, rerrors.InvalidArgument("header mode must be auto, yes or no, got %q", mode)
	}
}

// LoadCSV reads (image path, label) rows from path.
func LoadCSV(path string, opts ...Option) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rerrors.NotFound("dataset %s not found", path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	samples, err := ReadCSV(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return samples, nil
}

// ReadCSV parses rows of either (path, label) or (index, path, label), the
// latter being what pandas writes by default. A header row is skipped, see
// WithHeader.
// Backslash separators in paths become forward slashes.
func ReadCSV(r io.Reader, opts ...Option) ([]Sample, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var samples []Sample
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerrors.Wrap(rerrors.CodeDecode, err, "malformed csv")
		}
		if line == 1 && o.skipHeader(record) {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		var imgPath, label string
		switch len(record) {
		case 2:
			imgPath, label = record[0], record[1]
		case 3:
			if _, err := strconv.Atoi(strings.TrimSpace(record[0])); err != nil {
				return nil, rerrors.InvalidArgument("line %d: three columns but first is not an index", line)
			}
			imgPath, label = record[1], record[2]
		default:
			return nil, rerrors.InvalidArgument("line %d: want 2 or 3 columns, got %d", line, len(record))
		}

		samples = append(samples, Sample{Path: o.resolve(imgPath), Label: label})
		if o.limit > 0 && len(samples) >= o.limit {
			break
		}
	}
	return samples, nil
}

func (o options) resolve(p string) string {
	p = NormalizePath(p)
	if o.baseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(o.baseDir, p)
	}
	return p
}

// NormalizePath converts Windows separators so paths written on Windows load
// elsewhere.
func NormalizePath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"))
}

func (o options) skipHeader(record []string) bool {
	if o.header != nil {
		return *o.header
	}
	return isHeader(record)
}

// isHeader reports whether the first row names columns rather than data.
// pandas writes an empty first cell when the index is exported.
func isHeader(record []string) bool {
	if len(record) == 3 && strings.TrimSpace(record[0]) == "" {
		return true
	}
	for _, f := range record {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "image", "image_path", "path", "file", "filename", "label", "text", "0", "1":
		default:
			return false
		}
	}
	return true
}
