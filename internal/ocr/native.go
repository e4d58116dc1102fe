package ocr

import (
	"bytes"
	"context"
	"os"
	"strings"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// Native recognizes text with the operating system's OCR service.
// Only full text is available; wrap it in a TextExtractor to get tokens.
type Native struct{}

// NewNative creates the platform-native recognizer.
func NewNative() *Native { return &Native{} }

// Engine returns the engine name for this platform, or "" when unsupported.
func (n *Native) Engine() string { return nativeEngine }

// Recognize writes png to a temp file and runs the platform OCR script on it.
func (n *Native) Recognize(ctx context.Context, png []byte, _, language string) (string, error) {
	f, err := os.CreateTemp("", "vision-ocr-*.png")
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeIOFailure, "create temp image")
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(png); err != nil {
		f.Close()
		return "", apperrors.Wrap(err, apperrors.CodeIOFailure, "write temp image")
	}
	if err := f.Close(); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeIOFailure, "close temp image")
	}

	cmd, err := nativeCommand(ctx, path, language)
	if err != nil {
		return "", err
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "native ocr failed").
			WithMetadata("engine", nativeEngine).
			WithMetadata("stderr", strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
