package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
	"github.com/GriffinCanCode/good-listener/backend/vision/internal/ocr"
)

var envVars = []string{
	PathEnv, "HTTP_ADDR", "RECOGNITION_ADDR", "LOG_LEVEL", "MONITOR_ID", "MONITOR_NAME",
	"CAPTURE_RATE", "CAPTURE_TIMEOUT", "OCR_ENGINE", "OCR_LANGUAGE", "OCR_DPI", "OCR_PSM",
	"OCR_OEM", "OCR_CHANGE_THRESHOLD", "TEXT_OUTPUT_DIR", "SAVE_TEXT_FILES",
	"SKIP_IDENTICAL_FRAMES", "MAX_HASH_DISTANCE", "KEYFRAME_WINDOW", "INDEX_BATCH_SIZE",
	"INDEX_FLUSH_DELAY",
}

// clearEnv blanks every key for the duration of the test; empty means unset to getEnv*.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8010" {
		t.Errorf("HTTPAddr = %q, want :8010", cfg.HTTPAddr)
	}
	if cfg.CaptureRate != 1.0 {
		t.Errorf("CaptureRate = %v, want 1.0", cfg.CaptureRate)
	}
	if cfg.OCR.Engine != ocr.EngineTesseract {
		t.Errorf("OCR.Engine = %q, want tesseract", cfg.OCR.Engine)
	}
	if cfg.OCR.Language != "eng" || cfg.OCR.DPI != 600 || cfg.OCR.PageSegMode != 1 || cfg.OCR.EngineMode != ocr.EngineNeural {
		t.Errorf("OCR backend config = %+v", cfg.OCR.Config)
	}
	if cfg.OCR.Variables["tessedit_create_tsv"] != "1" {
		t.Error("tsv output variable should be set by default")
	}
	if cfg.TextOutputDir != "text_json" || cfg.SaveTextFiles {
		t.Errorf("text output = %q/%v", cfg.TextOutputDir, cfg.SaveTextFiles)
	}
	if !cfg.SkipIdenticalFrames {
		t.Error("SkipIdenticalFrames should default to true")
	}
	if cfg.CaptureInterval() != time.Second {
		t.Errorf("CaptureInterval() = %v, want 1s", cfg.CaptureInterval())
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("RECOGNITION_ADDR", "sidecar:50051")
	t.Setenv("MONITOR_ID", "1")
	t.Setenv("MONITOR_NAME", "HDMI-A-1")
	t.Setenv("CAPTURE_RATE", "2")
	t.Setenv("CAPTURE_TIMEOUT", "750ms")
	t.Setenv("OCR_ENGINE", "unstructured")
	t.Setenv("OCR_LANGUAGE", "deu")
	t.Setenv("OCR_DPI", "300")
	t.Setenv("OCR_PSM", "3")
	t.Setenv("OCR_OEM", "3")
	t.Setenv("SAVE_TEXT_FILES", "true")
	t.Setenv("SKIP_IDENTICAL_FRAMES", "false")
	t.Setenv("KEYFRAME_WINDOW", "30")
	t.Setenv("INDEX_FLUSH_DELAY", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":9000" || cfg.RecognitionAddr != "sidecar:50051" {
		t.Errorf("addrs = %q/%q", cfg.HTTPAddr, cfg.RecognitionAddr)
	}
	if cfg.MonitorID != 1 || cfg.MonitorName != "HDMI-A-1" {
		t.Errorf("monitor = %d/%q", cfg.MonitorID, cfg.MonitorName)
	}
	if cfg.CaptureInterval() != 500*time.Millisecond {
		t.Errorf("CaptureInterval() = %v, want 500ms", cfg.CaptureInterval())
	}
	if cfg.CaptureTimeout != 750*time.Millisecond {
		t.Errorf("CaptureTimeout = %v", cfg.CaptureTimeout)
	}
	if cfg.OCR.Engine != "unstructured" || cfg.OCR.Language != "deu" || cfg.OCR.DPI != 300 ||
		cfg.OCR.PageSegMode != 3 || cfg.OCR.EngineMode != ocr.EngineDefault {
		t.Errorf("OCR = %+v", cfg.OCR)
	}
	if !cfg.SaveTextFiles || cfg.SkipIdenticalFrames {
		t.Error("bool overrides not applied")
	}
	if cfg.KeyframeWindow != 30 || cfg.IndexFlushDelay != time.Minute {
		t.Errorf("KeyframeWindow = %d, IndexFlushDelay = %v", cfg.KeyframeWindow, cfg.IndexFlushDelay)
	}
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAPTURE_RATE", "fast")
	t.Setenv("OCR_DPI", "high")
	t.Setenv("CAPTURE_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CaptureRate != 1.0 || cfg.OCR.DPI != 600 || cfg.CaptureTimeout != 5*time.Second {
		t.Errorf("unparseable values should keep defaults, got %v/%d/%v", cfg.CaptureRate, cfg.OCR.DPI, cfg.CaptureTimeout)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "vision.yaml")
	yamlDoc := `
http_addr: ":7000"
capture_rate: 0.5
capture_timeout: 2s
monitor_name: eDP-1
ocr:
  engine: tesseract
  language: fra
  psm: 6
  change_threshold: 0.2
  variables:
    preserve_interword_spaces: "1"
save_text_files: true
index_batch_size: 5
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnv, path)
	t.Setenv("HTTP_ADDR", ":7001") // env wins over file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":7001" {
		t.Errorf("HTTPAddr = %q, want env override :7001", cfg.HTTPAddr)
	}
	if cfg.CaptureRate != 0.5 || cfg.CaptureTimeout != 2*time.Second || cfg.MonitorName != "eDP-1" {
		t.Errorf("capture = %v/%v/%q", cfg.CaptureRate, cfg.CaptureTimeout, cfg.MonitorName)
	}
	if cfg.OCR.Language != "fra" || cfg.OCR.PageSegMode != 6 || cfg.OCR.ChangeThreshold != 0.2 {
		t.Errorf("OCR = %+v", cfg.OCR)
	}
	if cfg.OCR.DPI != 600 {
		t.Errorf("DPI = %d, keys absent from the file should keep defaults", cfg.OCR.DPI)
	}
	if cfg.OCR.Variables["preserve_interword_spaces"] != "1" {
		t.Errorf("Variables = %v", cfg.OCR.Variables)
	}
	if !cfg.SaveTextFiles || cfg.IndexBatchSize != 5 {
		t.Errorf("SaveTextFiles = %v, IndexBatchSize = %d", cfg.SaveTextFiles, cfg.IndexBatchSize)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	t.Setenv(PathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("missing file: err = %v, want CONFIG_INVALID", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("capture_rate: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(PathEnv, bad)
	if _, err := Load(); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("bad yaml: err = %v, want CONFIG_INVALID", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero rate", func(c *Config) { c.CaptureRate = 0 }, "capture_rate"},
		{"rate below a nanosecond", func(c *Config) { c.CaptureRate = 2e9 }, "capture_rate"},
		{"zero timeout", func(c *Config) { c.CaptureTimeout = 0 }, "capture_timeout"},
		{"threshold above one", func(c *Config) { c.OCR.ChangeThreshold = 1.5 }, "ocr.change_threshold"},
		{"engine mode", func(c *Config) { c.OCR.EngineMode = 7 }, "ocr.oem"},
		{"negative hash distance", func(c *Config) { c.MaxHashDistance = -1 }, "max_hash_distance"},
		{"negative window", func(c *Config) { c.KeyframeWindow = -1 }, "keyframe_window"},
		{"batch size", func(c *Config) { c.IndexBatchSize = 0 }, "index_batch_size"},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "easyocr" }, "ocr.engine"},
		{"remote without addr", func(c *Config) { c.OCR.Engine = "unstructured" }, "recognition_addr"},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
				t.Fatalf("err = %v, want CONFIG_INVALID", err)
			}
			appErr := err.(*apperrors.AppError)
			if appErr.Metadata["field"] != tt.field {
				t.Errorf("field = %q, want %q", appErr.Metadata["field"], tt.field)
			}
		})
	}
}

func TestCaptureInterval(t *testing.T) {
	cfg := Default()
	cfg.CaptureRate = 4
	if got := cfg.CaptureInterval(); got != 250*time.Millisecond {
		t.Errorf("CaptureInterval() = %v, want 250ms", got)
	}

	cfg.CaptureRate = 1e9
	if err := cfg.Validate(); err != nil {
		t.Errorf("1ns interval should validate: %v", err)
	}
}
