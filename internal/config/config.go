// Package config loads pipeline configuration: defaults, an optional YAML file, then env overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/ocr"
)

// PathEnv names the env var holding the YAML config path.
const PathEnv = "VISION_CONFIG"

type Config struct {
	HTTPAddr        string `yaml:"http_addr"`
	RecognitionAddr string `yaml:"recognition_addr"` // empty disables the sidecar
	LogLevel        string `yaml:"log_level"`

	MonitorID      int           `yaml:"monitor_id"`
	MonitorName    string        `yaml:"monitor_name"`
	CaptureRate    float64       `yaml:"capture_rate"` // Hz
	CaptureTimeout time.Duration `yaml:"capture_timeout"`

	OCR OCRConfig `yaml:"ocr"`

	TextOutputDir string `yaml:"text_output_dir"`
	SaveTextFiles bool   `yaml:"save_text_files"`

	SkipIdenticalFrames bool `yaml:"skip_identical_frames"`
	MaxHashDistance     int  `yaml:"max_hash_distance"` // pHash distance treated as "same screen"
	KeyframeWindow      int  `yaml:"keyframe_window"`   // frames per keyframe window, 0 = never reset

	IndexBatchSize  int           `yaml:"index_batch_size"`
	IndexFlushDelay time.Duration `yaml:"index_flush_delay"`
}

// OCRConfig selects the engine and carries the backend pass-through settings.
type OCRConfig struct {
	Engine string `yaml:"engine"`
	// ChangeThreshold is the change score at or above which OCR always runs.
	ChangeThreshold float64 `yaml:"change_threshold"`

	ocr.Config `yaml:",inline"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr:        ":8010",
		RecognitionAddr: "",
		LogLevel:        "info",
		CaptureRate:     1.0,
		CaptureTimeout:  5 * time.Second,
		OCR: OCRConfig{
			Engine:          ocr.EngineTesseract,
			ChangeThreshold: 0.05,
			Config:          ocr.DefaultConfig(),
		},
		TextOutputDir:       "text_json",
		SaveTextFiles:       false,
		SkipIdenticalFrames: true,
		MaxHashDistance:     2,
		KeyframeWindow:      0,
		IndexBatchSize:      20,
		IndexFlushDelay:     5 * time.Second,
	}
}

// Load builds the configuration: defaults, the YAML file at $VISION_CONFIG if set,
// then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(PathEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "read config file").WithMetadata("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigInvalid, "parse config file").WithMetadata("path", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.RecognitionAddr = getEnv("RECOGNITION_ADDR", c.RecognitionAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MonitorID = getEnvInt("MONITOR_ID", c.MonitorID)
	c.MonitorName = getEnv("MONITOR_NAME", c.MonitorName)
	c.CaptureRate = getEnvFloat("CAPTURE_RATE", c.CaptureRate)
	c.CaptureTimeout = getEnvDuration("CAPTURE_TIMEOUT", c.CaptureTimeout)
	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.Language = getEnv("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.DPI = getEnvInt("OCR_DPI", c.OCR.DPI)
	c.OCR.PageSegMode = getEnvInt("OCR_PSM", c.OCR.PageSegMode)
	c.OCR.EngineMode = ocr.EngineMode(getEnvInt("OCR_OEM", int(c.OCR.EngineMode)))
	c.OCR.ChangeThreshold = getEnvFloat("OCR_CHANGE_THRESHOLD", c.OCR.ChangeThreshold)
	c.TextOutputDir = getEnv("TEXT_OUTPUT_DIR", c.TextOutputDir)
	c.SaveTextFiles = getEnvBool("SAVE_TEXT_FILES", c.SaveTextFiles)
	c.SkipIdenticalFrames = getEnvBool("SKIP_IDENTICAL_FRAMES", c.SkipIdenticalFrames)
	c.MaxHashDistance = getEnvInt("MAX_HASH_DISTANCE", c.MaxHashDistance)
	c.KeyframeWindow = getEnvInt("KEYFRAME_WINDOW", c.KeyframeWindow)
	c.IndexBatchSize = getEnvInt("INDEX_BATCH_SIZE", c.IndexBatchSize)
	c.IndexFlushDelay = getEnvDuration("INDEX_FLUSH_DELAY", c.IndexFlushDelay)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return apperrors.Newf(apperrors.CodeConfigInvalid, format, args...).WithMetadata("field", field)
	}
	switch {
	case c.CaptureRate <= 0:
		return invalid("capture_rate", "capture rate must be positive, got %v", c.CaptureRate)
	case c.CaptureInterval() <= 0:
		return invalid("capture_rate", "capture rate %v is too high for a ticker interval", c.CaptureRate)
	case c.CaptureTimeout <= 0:
		return invalid("capture_timeout", "capture timeout must be positive, got %v", c.CaptureTimeout)
	case c.OCR.ChangeThreshold < 0 || c.OCR.ChangeThreshold > 1:
		return invalid("ocr.change_threshold", "change threshold must be within [0, 1], got %v", c.OCR.ChangeThreshold)
	case c.OCR.EngineMode < ocr.EngineLegacy || c.OCR.EngineMode > ocr.EngineDefault:
		return invalid("ocr.oem", "unknown engine mode %d", c.OCR.EngineMode)
	case c.MaxHashDistance < 0:
		return invalid("max_hash_distance", "max hash distance must not be negative")
	case c.KeyframeWindow < 0:
		return invalid("keyframe_window", "keyframe window must not be negative")
	case c.IndexBatchSize <= 0:
		return invalid("index_batch_size", "index batch size must be positive, got %d", c.IndexBatchSize)
	}
	switch strings.ToLower(c.OCR.Engine) {
	case ocr.EngineTesseract, ocr.EngineWindows, ocr.EngineApple:
	case ocr.EngineUnstructured:
		if c.RecognitionAddr == "" {
			return invalid("recognition_addr", "ocr engine %q needs RECOGNITION_ADDR", c.OCR.Engine)
		}
	default:
		return invalid("ocr.engine", "unknown ocr engine %q", c.OCR.Engine)
	}
	return nil
}

// CaptureInterval converts CaptureRate to a ticker period.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.CaptureRate)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
