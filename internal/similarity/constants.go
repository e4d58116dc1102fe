package similarity

// Similarity constants
const (
	// Intensity histogram resolution (8-bit luma)
	HistogramBins = 256

	// Side of the square SSIM window in pixels
	SSIMWindow = 8

	dynamicRange = 255.0
)

var (
	ssimC1 = (0.01 * dynamicRange) * (0.01 * dynamicRange)
	ssimC2 = (0.03 * dynamicRange) * (0.03 * dynamicRange)
)
