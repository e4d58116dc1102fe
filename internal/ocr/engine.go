package ocr

import (
	"runtime"
	"strings"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// NewExtractor selects a backend by engine name. remote serves the unstructured engine
// and may be nil when that engine is not used.
func NewExtractor(engine string, remote Recognizer) (Extractor, error) {
	name := strings.ToLower(strings.TrimSpace(engine))
	switch name {
	case "", EngineTesseract:
		return NewTesseract(), nil
	case EngineWindows, EngineApple:
		if name != nativeEngine {
			return nil, apperrors.Newf(apperrors.CodeOCRUnavailable, "%s ocr not available on %s", name, runtime.GOOS)
		}
		return NewTextExtractor(NewNative(), name), nil
	case EngineUnstructured:
		if remote == nil {
			return nil, apperrors.New(apperrors.CodeConfigInvalid, "unstructured engine needs a recognition service")
		}
		return NewTextExtractor(remote, EngineUnstructured), nil
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown ocr engine %q", engine)
	}
}
