// Command augment writes randomly augmented copies of dataset images.
//
// Usage: augment [options] [image...]
//
// Images come from the positional arguments or, when none are given, from the
// -data CSV. With -data a labels.csv for the written copies is produced too.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wordreader/internal/augment"
	"wordreader/internal/config"
	"wordreader/internal/dataset"
	wrimage "wordreader/internal/image"
	"wordreader/internal/logging"
	"wordreader/internal/resize"
	"wordreader/internal/version"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var (
	flagPipeline = flag.String("pipeline", "", "Augmentation pipeline YAML (default: brightness, erode/dilate, sharpen)")
	flagData     = flag.String("data", "", "CSV of image path and label (default $WORDREADER_DATASET)")
	flagDataDir  = flag.String("data-dir", "", "Directory relative image paths are resolved against")
	flagOut      = flag.String("out", "augmented", "Output directory")
	flagCopies   = flag.Int("n", 3, "Augmented copies per image")
	flagSeed     = flag.Int64("seed", 0, "Random seed, overrides the pipeline seed when non-zero")
	flagLimit    = flag.Int("limit", 0, "Process at most this many images, 0 for all")
	flagWidth    = flag.Int("width", 0, "Letterbox output to this width (requires -height)")
	flagHeight   = flag.Int("height", 0, "Letterbox output to this height (requires -width)")
	flagPadAuto  = flag.Bool("pad-auto", false, "Letterbox with the image border colour instead of -pad-color")
	flagPadColor = flag.String("pad-color", "", "Letterbox fill as r,g,b or black/white (default $WORDREADER_PAD_COLOR or black)")
	flagHeader   = flag.String("header", "auto", "First CSV row is a header: auto, yes or no")
	flagLogLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
	flagEnvFile  = flag.String("env", config.DefaultEnvFile, "Environment file with defaults")
	flagVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Println(version.String("augment"))
		return
	}

	cfg, err := config.Load(*flagEnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error in configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	pcfg := augment.DefaultConfig()
	if *flagPipeline != "" {
		if pcfg, err = augment.LoadConfig(*flagPipeline); err != nil {
			logger.Fatalw("failed to load pipeline", "path", *flagPipeline, "error", err)
		}
	}
	if *flagSeed != 0 {
		pcfg.Seed = *flagSeed
	}
	pipeline, err := pcfg.Build(logger)
	if err != nil {
		logger.Fatalw("failed to build pipeline", "error", err)
	}

	resizer, err := newResizer(cfg)
	if err != nil {
		logger.Fatalw("invalid letterbox options", "error", err)
	}

	samples, err := inputs(cfg)
	if err != nil {
		logger.Fatalw("failed to read inputs", "error", err)
	}
	if *flagLimit > 0 && len(samples) > *flagLimit {
		samples = samples[:*flagLimit]
	}

	if err := os.MkdirAll(*flagOut, 0755); err != nil {
		logger.Fatalw("failed to create output directory", "path", *flagOut, "error", err)
	}

	w := &writer{out: *flagOut, copies: *flagCopies, pipeline: pipeline, resizer: resizer, logger: logger}
	written, failed := w.run(samples)

	if flag.NArg() == 0 {
		labels := filepath.Join(*flagOut, "labels.csv")
		if err := writeLabels(labels, written); err != nil {
			logger.Errorw("failed to write labels", "path", labels, "error", err)
		} else {
			fmt.Printf("Labels written to: %s\n", labels)
		}
	}

	fmt.Printf("Wrote %d images from %d inputs (%d failed) to %s\n", len(written), len(samples), failed, *flagOut)
	if failed > 0 {
		os.Exit(2)
	}
}

func inputs(cfg *config.Config) ([]dataset.Sample, error) {
	if flag.NArg() > 0 {
		samples := make([]dataset.Sample, flag.NArg())
		for i, p := range flag.Args() {
			samples[i] = dataset.Sample{Path: p}
		}
		return samples, nil
	}
	header, err := dataset.HeaderOption(*flagHeader)
	if err != nil {
		return nil, err
	}
	return dataset.LoadCSV(cfg.Dataset, dataset.WithBaseDir(cfg.DataDir), header)
}

// applyFlags overrides cfg with the flags that were set and validates the result.
func applyFlags(cfg *config.Config) error {
	if *flagData != "" {
		cfg.Dataset = *flagData
	}
	if *flagDataDir != "" {
		cfg.DataDir = *flagDataDir
	}
	if *flagPadColor != "" {
		cfg.PadColor = *flagPadColor
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	return cfg.Validate()
}

// newResizer returns nil unless both -width and -height are set.
func newResizer(cfg *config.Config) (*resize.Resizer, error) {
	if *flagWidth <= 0 || *flagHeight <= 0 {
		return nil, nil
	}
	fill, err := cfg.Fill()
	if err != nil {
		return nil, err
	}
	r := resize.NewResizer(*flagWidth, *flagHeight)
	r.Fill = fill
	r.AutoFill = *flagPadAuto
	return r, nil
}

// writer produces the augmented copies of each sample.
type writer struct {
	out      string
	copies   int
	pipeline *augment.Pipeline
	resizer  *resize.Resizer
	logger   *zap.SugaredLogger
}

// run returns the written samples and the number of inputs that failed.
func (w *writer) run(samples []dataset.Sample) ([]dataset.Sample, int) {
	var written []dataset.Sample
	failed := 0
	for i, s := range samples {
		out, err := w.one(i, s)
		written = append(written, out...)
		if err != nil {
			w.logger.Warnw("augmentation failed", "image", s.Path, "error", err)
			failed++
		}
	}
	return written, failed
}

func (w *writer) one(index int, s dataset.Sample) ([]dataset.Sample, error) {
	src, err := wrimage.Load(s.Path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ext := filepath.Ext(s.Path)
	base := strings.TrimSuffix(filepath.Base(s.Path), ext)
	if ext == "" {
		ext = ".png"
	}

	var written []dataset.Sample
	for c := 0; c < w.copies; c++ {
		img := src.Clone()
		path, applied, err := w.write(img, fmt.Sprintf("%05d_%s_aug%d%s", index, base, c, ext))
		img.Close()
		if err != nil {
			return written, err
		}
		w.logger.Debugw("wrote augmented image", "source", s.Path, "path", path, "applied", applied)
		written = append(written, dataset.Sample{Path: path, Label: s.Label})
	}
	return written, nil
}

func (w *writer) write(img wrimage.Image, name string) (string, []string, error) {
	img, applied, err := w.pipeline.Run(img)
	if err != nil {
		return "", applied, err
	}
	if w.resizer != nil {
		if _, err := w.resizer.Apply(img); err != nil {
			return "", applied, err
		}
	}

	bgr, err := img.BGR()
	if err != nil {
		return "", applied, err
	}
	defer bgr.Close()

	path := filepath.Join(w.out, name)
	if !gocv.IMWrite(path, bgr) {
		return "", applied, fmt.Errorf("failed to write %s", path)
	}
	return path, applied, nil
}

func writeLabels(path string, samples []dataset.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"image", "label"}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := cw.Write([]string{filepath.ToSlash(s.Path), s.Label}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
