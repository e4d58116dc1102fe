package ocr

// OCR constants
const (
	DefaultLanguage    = "eng"
	DefaultDPI         = 600
	DefaultPageSegMode = 1 // automatic page segmentation with OSD

	// ConfidenceNotAvailable is how a missing confidence is rendered.
	ConfidenceNotAvailable = "n/a"
)

// Engine names accepted by NewExtractor.
const (
	EngineTesseract    = "tesseract"
	EngineWindows      = "windows"
	EngineApple        = "apple"
	EngineUnstructured = "unstructured"
)
