package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/menta2k/canopy-analyzer/pkg/vegetation"
)

// Config holds the application configuration
type Config struct {
	Classifier ClassifierConfig `json:"classifier"`
	Batch      BatchConfig      `json:"batch"`
	Analyzer   AnalyzerConfig   `json:"analyzer"`
	Output     OutputConfig     `json:"output"`
}

// ClassifierConfig holds the pixel classification parameters
type ClassifierConfig struct {
	RedGreenMax  float64 `json:"red_green_max"`
	BlueGreenMax float64 `json:"blue_green_max"`
	ExGMin       float64 `json:"exg_min"`
	Mode         string  `json:"mode"`
	OpeningSize  int     `json:"opening_size"`
}

// BatchConfig holds configuration for batch runs
type BatchConfig struct {
	ParseMetadata bool `json:"parse_metadata"`
	SaveMask      bool `json:"save_mask"`
	Parallel      bool `json:"parallel"`
	Workers       int  `json:"workers"`
}

// AnalyzerConfig holds configuration for image loading
type AnalyzerConfig struct {
	SupportedFormats []string `json:"supported_formats"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format       string `json:"format"`
	RenderDir    string `json:"render_dir"`
	RenderFormat string `json:"render_format"`
	Quality      int    `json:"quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			RedGreenMax:  0.95,
			BlueGreenMax: 0.95,
			ExGMin:       20,
			Mode:         vegetation.ModeExGGated.String(),
			OpeningSize:  vegetation.DefaultOpeningSize,
		},
		Batch: BatchConfig{
			ParseMetadata: true,
			SaveMask:      false,
			Parallel:      false,
			Workers:       0,
		},
		Analyzer: AnalyzerConfig{
			SupportedFormats: []string{"png", "jpg", "jpeg", "tiff", "tif", "bmp", "gif"},
		},
		Output: OutputConfig{
			Format:       "csv",
			RenderDir:    "",
			RenderFormat: "png",
			Quality:      90,
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists (falling back to defaults) and applies
// environment overrides
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Environment variables recognized by ApplyEnv
const (
	EnvRedGreenMax   = "CANOPY_RED_GREEN_MAX"
	EnvBlueGreenMax  = "CANOPY_BLUE_GREEN_MAX"
	EnvExGMin        = "CANOPY_EXG_MIN"
	EnvMode          = "CANOPY_MODE"
	EnvOpeningSize   = "CANOPY_OPENING_SIZE"
	EnvParseMetadata = "CANOPY_PARSE_METADATA"
	EnvSaveMask      = "CANOPY_SAVE_MASK"
	EnvParallel      = "CANOPY_PARALLEL"
	EnvWorkers       = "CANOPY_WORKERS"
	EnvFormats       = "CANOPY_FORMATS"
)

// ApplyEnv overrides fields from the environment, after loading a .env file
// from the working directory when one exists
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []error
	setFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	setFloat(EnvRedGreenMax, &c.Classifier.RedGreenMax)
	setFloat(EnvBlueGreenMax, &c.Classifier.BlueGreenMax)
	setFloat(EnvExGMin, &c.Classifier.ExGMin)
	setInt(EnvOpeningSize, &c.Classifier.OpeningSize)
	setBool(EnvParseMetadata, &c.Batch.ParseMetadata)
	setBool(EnvSaveMask, &c.Batch.SaveMask)
	setBool(EnvParallel, &c.Batch.Parallel)
	setInt(EnvWorkers, &c.Batch.Workers)
	if v := os.Getenv(EnvMode); v != "" {
		c.Classifier.Mode = v
	}
	if v := os.Getenv(EnvFormats); v != "" {
		c.Analyzer.SupportedFormats = strings.Split(v, ",")
	}

	return errors.Join(errs...)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Classifier.RedGreenMax <= 0 {
		return fmt.Errorf("classifier.red_green_max must be positive")
	}

	if c.Classifier.BlueGreenMax <= 0 {
		return fmt.Errorf("classifier.blue_green_max must be positive")
	}

	if _, ok := vegetation.ParseMode(c.Classifier.Mode); !ok {
		return fmt.Errorf("classifier.mode must be exg-gated or ratio-only, got %q", c.Classifier.Mode)
	}

	if c.Classifier.OpeningSize < 0 {
		return fmt.Errorf("classifier.opening_size cannot be negative")
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers cannot be negative")
	}

	if len(c.Analyzer.SupportedFormats) == 0 {
		return fmt.Errorf("analyzer.supported_formats cannot be empty")
	}

	switch c.Output.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("output.format must be csv or json")
	}

	switch strings.ToLower(c.Output.RenderFormat) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.render_format must be png, jpg or webp")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	return nil
}

// Mode returns the parsed classification mode
func (c *Config) Mode() vegetation.Mode {
	mode, _ := vegetation.ParseMode(c.Classifier.Mode)
	return mode
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "canopy-analyzer", "config.json")
}
