// Command evaluate scores a recognition engine against a labelled dataset,
// printing CER and WER per sample and their averages.
//
// Usage: evaluate [options]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"wordreader/internal/config"
	"wordreader/internal/dataset"
	wrimage "wordreader/internal/image"
	"wordreader/internal/inference"
	"wordreader/internal/logging"
	"wordreader/internal/metrics"
	"wordreader/internal/version"

	"go.uber.org/zap"
)

var (
	flagConfig   = flag.String("config", "", "Model configs.yaml (default $WORDREADER_MODEL_CONFIG or configs.yaml)")
	flagData     = flag.String("data", "", "Validation CSV of image path and label (default $WORDREADER_DATASET or val.csv)")
	flagDataDir  = flag.String("data-dir", "", "Directory relative image paths are resolved against (default $WORDREADER_DATA_DIR)")
	flagEngine   = flag.String("engine", inference.EngineCTC, "Recognition engine: ctc or tesseract")
	flagHeader   = flag.String("header", "auto", "First CSV row is a header: auto, yes or no")
	flagLimit    = flag.Int("limit", 0, "Evaluate at most this many samples, 0 for all")
	flagBeam     = flag.Int("beam", -1, "Beam width for CTC decoding, 0 for greedy (default $WORDREADER_BEAM_WIDTH)")
	flagSoftmax  = flag.Bool("softmax", false, "Apply softmax to model output (for models that emit logits)")
	flagORTLib   = flag.String("ort-lib", "", "onnxruntime shared library (default $ONNXRUNTIME_LIB)")
	flagJSON     = flag.String("json", "", "Write a JSON report to this file")
	flagQuiet    = flag.Bool("q", false, "Only print the summary")
	flagPadColor = flag.String("pad-color", "", "Letterbox fill as r,g,b or black/white (default $WORDREADER_PAD_COLOR or black)")
	flagLogLevel = flag.String("log-level", "", "Log level: debug, info, warn, error")
	flagEnvFile  = flag.String("env", config.DefaultEnvFile, "Environment file with defaults")
	flagVersion  = flag.Bool("version", false, "Print version and exit")
)

// SampleResult is one evaluated image.
type SampleResult struct {
	Image string `json:"image"`
	metrics.Score
}

// Report is the JSON output.
type Report struct {
	Engine   string         `json:"engine"`
	Config   string         `json:"config"`
	Dataset  string         `json:"dataset"`
	Count    int            `json:"count"`
	Skipped  int            `json:"skipped"`
	MeanCER  float64        `json:"mean_cer"`
	MeanWER  float64        `json:"mean_wer"`
	Duration string         `json:"duration"`
	Samples  []SampleResult `json:"samples"`
}

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Println(version.String("evaluate"))
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

	header, err := dataset.HeaderOption(*flagHeader)
	if err != nil {
		logger.Fatalw("invalid -header", "error", err)
	}
	samples, err := dataset.LoadCSV(cfg.Dataset, dataset.WithBaseDir(cfg.DataDir), dataset.WithLimit(*flagLimit), header)
	if err != nil {
		logger.Fatalw("failed to load dataset", "path", cfg.Dataset, "error", err)
	}
	if len(samples) == 0 {
		fmt.Println("Dataset is empty.")
		return
	}
	logger.Infow("dataset loaded", "path", cfg.Dataset, "samples", len(samples))

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

	start := time.Now()
	report := evaluate(rec, samples, logger, !*flagQuiet)
	report.Engine = *flagEngine
	report.Config = cfg.ModelConfig
	report.Dataset = cfg.Dataset
	report.Duration = time.Since(start).Round(time.Millisecond).String()

	printSummary(report)

	if *flagJSON != "" {
		if err := outputJSON(report, *flagJSON); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
		} else {
			fmt.Printf("\nResults written to: %s\n", *flagJSON)
		}
	}
}

// evaluate runs rec over every sample. Samples that fail to load or predict
// are logged and skipped.
func evaluate(rec inference.Recognizer, samples []dataset.Sample, logger *zap.SugaredLogger, verbose bool) *Report {
	var acc metrics.Accumulator
	report := &Report{}

	for _, s := range samples {
		prediction, err := predictSample(rec, s.Path)
		if err != nil {
			logger.Warnw("skipping sample", "image", s.Path, "error", err)
			report.Skipped++
			continue
		}

		score := acc.Add(prediction, s.Label)
		report.Samples = append(report.Samples, SampleResult{Image: s.Path, Score: score})

		if verbose {
			fmt.Println("Image:", s.Path)
			fmt.Println("Label:", s.Label)
			fmt.Println("Prediction:", prediction)
			fmt.Printf("CER: %g; WER: %g\n", score.CER, score.WER)
		}
	}

	report.Count = acc.Count()
	report.MeanCER = acc.MeanCER()
	report.MeanWER = acc.MeanWER()
	return report
}

func predictSample(rec inference.Recognizer, path string) (string, error) {
	img, err := wrimage.Load(path)
	if err != nil {
		return "", err
	}
	defer img.Close()
	return rec.Predict(img)
}

func printSummary(r *Report) {
	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Engine: %s\n", r.Engine)
	fmt.Printf("Samples: %d evaluated, %d skipped (%s)\n", r.Count, r.Skipped, r.Duration)
	fmt.Printf("Average CER: %g, Average WER: %g\n", r.MeanCER, r.MeanWER)
}

func outputJSON(r *Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyFlags overrides cfg with the flags that were set and validates the result.
func applyFlags(cfg *config.Config) error {
	if *flagConfig != "" {
		cfg.ModelConfig = *flagConfig
	}
	if *flagData != "" {
		cfg.Dataset = *flagData
	}
	if *flagDataDir != "" {
		cfg.DataDir = *flagDataDir
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
