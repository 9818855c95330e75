// Command predict recognises handwritten text in one or more images.
//
// Usage: predict [options] <image> [image...]
package main

import (
	"flag"
	"fmt"
	"os"

	"wordreader/internal/config"
	wrimage "wordreader/internal/image"
	"wordreader/internal/inference"
	"wordreader/internal/logging"
	"wordreader/internal/version"
)

var (
	flagConfig   = flag.String("config", "", "Model configs.yaml (default $WORDREADER_MODEL_CONFIG or configs.yaml)")
	flagEngine   = flag.String("engine", inference.EngineCTC, "Recognition engine: ctc or tesseract")
	flagBeam     = flag.Int("beam", -1, "Beam width for CTC decoding, 0 for greedy (default $WORDREADER_BEAM_WIDTH)")
	flagSoftmax  = flag.Bool("softmax", false, "Apply softmax to model output (for models that emit logits)")
	flagORTLib   = flag.String("ort-lib", "", "onnxruntime shared library (default $ONNXRUNTIME_LIB)")
	flagPadColor = flag.String("pad-color", "", "Letterbox fill as r,g,b or black/white (default $WORDREADER_PAD_COLOR or black)")
	flagLogLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
	flagEnvFile  = flag.String("env", config.DefaultEnvFile, "Environment file with defaults")
	flagVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Println(version.String("predict"))
		return
	}
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <image> [image...]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
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

	opts, err := recognizerOptions(cfg)
	if err != nil {
		logger.Fatalw("invalid options", "error", err)
	}
	opts = append(opts, inference.WithLogger(logger))

	rec, err := inference.OpenRecognizer(*flagEngine, cfg.ModelConfig, cfg.TesseractLanguage, opts...)
	if err != nil {
		logger.Fatalw("failed to open recognizer", "engine", *flagEngine, "config", cfg.ModelConfig, "error", err)
	}
	defer rec.Close()

	failed := 0
	for _, path := range flag.Args() {
		text, err := predictFile(rec, path)
		if err != nil {
			logger.Errorw("prediction failed", "image", path, "error", err)
			failed++
			continue
		}
		fmt.Printf("%s\t%s\n", path, text)
	}

	if failed > 0 {
		os.Exit(2)
	}
}

func predictFile(rec inference.Recognizer, path string) (string, error) {
	img, err := wrimage.Load(path)
	if err != nil {
		return "", err
	}
	defer img.Close()
	return rec.Predict(img)
}

// applyFlags overrides cfg with the flags that were set and validates the result.
func applyFlags(cfg *config.Config) error {
	if *flagConfig != "" {
		cfg.ModelConfig = *flagConfig
	}
	if *flagBeam >= 0 {
		cfg.BeamWidth = *flagBeam
	}
	if *flagORTLib != "" {
		cfg.ONNXRuntimeLibrary = *flagORTLib
	}
	if *flagPadColor != "" {
		cfg.PadColor = *flagPadColor
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	return cfg.Validate()
}

func recognizerOptions(cfg *config.Config) ([]inference.Option, error) {
	fill, err := cfg.Fill()
	if err != nil {
		return nil, err
	}
	opts := []inference.Option{
		inference.WithBeamSearch(cfg.BeamWidth),
		inference.WithONNXRuntimeLibrary(cfg.ONNXRuntimeLibrary),
		inference.WithPadColor(fill),
	}
	if *flagSoftmax {
		opts = append(opts, inference.WithSoftmax())
	}
	return opts, nil
}
