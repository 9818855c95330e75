// Package config supplies defaults for the command-line tools from the
// environment and an optional .env file. Flags override these values.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"wordreader/pkg/colorutil"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when no file is named.
const DefaultEnvFile = ".env"

// Config holds tool defaults.
type Config struct {
	// ModelConfig is the configs.yaml written next to the trained model.
	ModelConfig string
	// Dataset is the validation table used by evaluate and augment.
	Dataset string
	// DataDir resolves relative dataset image paths.
	DataDir string

	LogLevel string

	// ONNXRuntimeLibrary is the onnxruntime shared library path.
	ONNXRuntimeLibrary string
	// BeamWidth selects beam search decoding when above zero.
	BeamWidth int

	TesseractLanguage string

	// PadColor is the letterbox fill, "r,g,b" or black/white.
	PadColor string
}

// Load reads the named env files (DefaultEnvFile when none are given) into the
// process environment, without overriding variables already set, and builds
// a Config from the environment. Missing files are not an error. The result
// is not validated so that flags can still override bad values; call Validate
// once they are applied.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment.
func FromEnv() *Config {
	return &Config{
		ModelConfig:        getEnvOrDefault("WORDREADER_MODEL_CONFIG", "configs.yaml"),
		Dataset:            getEnvOrDefault("WORDREADER_DATASET", "val.csv"),
		DataDir:            getEnvOrDefault("WORDREADER_DATA_DIR", ""),
		LogLevel:           getEnvOrDefault("WORDREADER_LOG_LEVEL", "info"),
		ONNXRuntimeLibrary: getEnvOrDefault("ONNXRUNTIME_LIB", ""),
		BeamWidth:          getEnvAsIntOrDefault("WORDREADER_BEAM_WIDTH", 0),
		TesseractLanguage:  getEnvOrDefault("TESSERACT_LANG", "eng"),
		PadColor:           getEnvOrDefault("WORDREADER_PAD_COLOR", "black"),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.BeamWidth < 0 {
		return fmt.Errorf("WORDREADER_BEAM_WIDTH must not be negative, got %d", c.BeamWidth)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("WORDREADER_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if _, err := c.Fill(); err != nil {
		return fmt.Errorf("WORDREADER_PAD_COLOR: %w", err)
	}
	return nil
}

// Fill parses PadColor.
func (c *Config) Fill() (color.RGBA, error) {
	return colorutil.ParseRGB(c.PadColor)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
