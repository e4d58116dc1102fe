package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// TextExtractor adapts a full-text Recognizer to the Extractor interface.
// The whole result becomes a single word token on line 1 with no confidence.
type TextExtractor struct {
	rec    Recognizer
	engine string
}

// NewTextExtractor wraps rec; engine is forwarded to the recognizer on every call.
func NewTextExtractor(rec Recognizer, engine string) *TextExtractor {
	return &TextExtractor{rec: rec, engine: engine}
}

// Name returns the engine name.
func (e *TextExtractor) Name() string { return e.engine }

// ExtractTokens encodes img as PNG and asks the recognizer for its text.
func (e *TextExtractor) ExtractTokens(ctx context.Context, img image.Image, cfg Config) ([]Token, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIncompatibleInput, "encode image")
	}

	text, err := e.rec.Recognize(ctx, buf.Bytes(), e.engine, cfg.Language)
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.CodeUnknown {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "recognize").
			WithMetadata("engine", e.engine)
	}
	if text == "" {
		return nil, nil
	}

	return []Token{{
		Text:         text,
		Position:     Position{Level: 5, Page: 1, Block: 1, Paragraph: 1, Line: 1, Word: 1},
		Box:          img.Bounds(),
		NoConfidence: true,
	}}, nil
}
