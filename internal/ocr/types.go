// Package ocr turns OCR backend output into line-grouped text.
//
// Backends implement Extractor and return a flat, reading-ordered stream of word tokens.
// Reconstruct folds that stream into LineRecords; FullText flattens it for indexing.
package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
)

// Position locates a token in the backend's page/block/paragraph/line/word hierarchy.
// Word 0 marks a line boundary rather than a real word.
type Position struct {
	Level     int
	Page      int
	Block     int
	Paragraph int
	Line      int
	Word      int
}

// Descriptor renders the line-level part of the position for traceability.
func (p Position) Descriptor() string {
	return fmt.Sprintf("level%dpage_num%dblock_num%dpar_num%dline_num%d",
		p.Level, p.Page, p.Block, p.Paragraph, p.Line)
}

// Token is one word-level record from an OCR backend.
type Token struct {
	Text       string
	Confidence float64 // 0-100 as reported by the backend
	Position   Position
	Box        image.Rectangle

	// NoConfidence is set by backends that report no confidence at all.
	NoConfidence bool
}

// LineRecord is a finalized line: space-joined words and their mean confidence.
// NoConfidence is set when any of its words came without a confidence.
type LineRecord struct {
	Text         string
	Confidence   float64
	Position     Position
	NoConfidence bool
}

// ConfidenceString formats the confidence with two decimals, or "n/a" when the
// backend reports none.
func (r LineRecord) ConfidenceString() string {
	if r.NoConfidence {
		return ConfidenceNotAvailable
	}
	return fmt.Sprintf("%.2f", r.Confidence)
}

type lineRecordJSON struct {
	Text         string `json:"text"`
	Confidence   string `json:"confidence"`
	LinePosition string `json:"line_position"`
}

// MarshalJSON encodes the record the way downstream indexers consume it.
func (r LineRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineRecordJSON{
		Text:         r.Text,
		Confidence:   r.ConfidenceString(),
		LinePosition: r.Position.Descriptor(),
	})
}

// EngineMode selects the recognition engine inside the backend.
type EngineMode int

const (
	EngineLegacy EngineMode = iota
	EngineNeural
	EngineLegacyAndNeural
	EngineDefault
)

// Config is passed through to the backend untouched.
type Config struct {
	Language    string            `yaml:"language"`
	DPI         int               `yaml:"dpi"`
	PageSegMode int               `yaml:"psm"`
	EngineMode  EngineMode        `yaml:"oem"`
	Variables   map[string]string `yaml:"variables"`
}

// DefaultConfig favors granularity: high DPI, automatic segmentation with OSD, LSTM only.
func DefaultConfig() Config {
	return Config{
		Language:    DefaultLanguage,
		DPI:         DefaultDPI,
		PageSegMode: DefaultPageSegMode,
		EngineMode:  EngineNeural,
		Variables:   map[string]string{"tessedit_create_tsv": "1"},
	}
}

// Extractor produces word tokens for an image.
type Extractor interface {
	ExtractTokens(ctx context.Context, img image.Image, cfg Config) ([]Token, error)
	Name() string
}

// Recognizer is a backend that only returns full text with no word geometry or confidence.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte, engine, language string) (string, error)
}
