// Package similarity quantifies perceptual change between two frames.
//
// Two independent metrics are combined: a Hellinger distance between intensity
// histograms (insensitive to layout, tolerant of size changes) and a windowed structural
// similarity index (sensitive to layout, requires equal dimensions).
package similarity

import (
	"image"
	"image/draw"
	"math"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// Result holds both metrics and the combined change score for one comparison.
type Result struct {
	Histogram  float64 `json:"histogram"`  // Hellinger distance, 0 = identical distributions
	Structural float64 `json:"structural"` // mean SSIM, 1 = structurally identical
	Score      float64 `json:"score"`      // (Histogram + (1 - Structural)) / 2
}

// Compare scores cur against prev. A nil prev is the first frame of a session and
// scores 0 without comparing.
func Compare(prev, cur image.Image) (Result, error) {
	if prev == nil {
		return Result{}, nil
	}

	a, err := toGray(prev)
	if err != nil {
		return Result{}, err
	}
	b, err := toGray(cur)
	if err != nil {
		return Result{}, err
	}

	hist, err := hellinger(a, b)
	if err != nil {
		return Result{}, err
	}
	ssim, err := meanSSIM(a, b)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Histogram:  hist,
		Structural: ssim,
		Score:      (hist + (1 - ssim)) / 2,
	}, nil
}

// Histogram returns the Hellinger distance between the intensity histograms of a and b.
func Histogram(a, b image.Image) (float64, error) {
	ga, err := toGray(a)
	if err != nil {
		return 0, err
	}
	gb, err := toGray(b)
	if err != nil {
		return 0, err
	}
	return hellinger(ga, gb)
}

// Structural returns the mean structural similarity of a and b.
func Structural(a, b image.Image) (float64, error) {
	ga, err := toGray(a)
	if err != nil {
		return 0, err
	}
	gb, err := toGray(b)
	if err != nil {
		return 0, err
	}
	return meanSSIM(ga, gb)
}

// toGray converts img to a single-channel intensity image anchored at the origin.
func toGray(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, apperrors.New(apperrors.CodeIncompatibleInput, "nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, apperrors.Newf(apperrors.CodeIncompatibleInput, "empty image %v", b)
	}
	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g, nil
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray, nil
}

func histogram(g *image.Gray) (h [HistogramBins]float64, total float64) {
	w, ht := g.Rect.Dx(), g.Rect.Dy()
	for y := 0; y < ht; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, v := range row {
			h[v]++
		}
	}
	return h, float64(w * ht)
}

// hellinger computes sqrt(1 - BC) where BC is the Bhattacharyya coefficient of the
// normalized histograms. Dimensions of a and b may differ.
func hellinger(a, b *image.Gray) (float64, error) {
	ha, na := histogram(a)
	hb, nb := histogram(b)
	if na == 0 || nb == 0 {
		return 0, apperrors.New(apperrors.CodeIncompatibleInput, "histogram of empty image")
	}

	var bc float64
	for i := range ha {
		bc += math.Sqrt(ha[i] * hb[i])
	}
	bc /= math.Sqrt(na * nb)

	d := 1 - bc
	if d < 0 {
		d = 0 // rounding
	}
	return math.Sqrt(d), nil
}

// meanSSIM averages SSIM over non-overlapping windows; edge windows may be smaller.
func meanSSIM(a, b *image.Gray) (float64, error) {
	wa, ha := a.Rect.Dx(), a.Rect.Dy()
	wb, hb := b.Rect.Dx(), b.Rect.Dy()
	if wa != wb || ha != hb {
		return 0, apperrors.Newf(apperrors.CodeDimensionMismatch,
			"structural similarity needs equal dimensions, got %dx%d and %dx%d", wa, ha, wb, hb)
	}

	var sum float64
	var windows int
	for y := 0; y < ha; y += SSIMWindow {
		for x := 0; x < wa; x += SSIMWindow {
			sum += windowSSIM(a, b, x, y, min(SSIMWindow, wa-x), min(SSIMWindow, ha-y))
			windows++
		}
	}
	return sum / float64(windows), nil
}

func windowSSIM(a, b *image.Gray, x0, y0, w, h int) float64 {
	n := float64(w * h)

	var sumA, sumB float64
	for y := y0; y < y0+h; y++ {
		ra := a.Pix[y*a.Stride:]
		rb := b.Pix[y*b.Stride:]
		for x := x0; x < x0+w; x++ {
			sumA += float64(ra[x])
			sumB += float64(rb[x])
		}
	}
	meanA, meanB := sumA/n, sumB/n

	var varA, varB, cov float64
	for y := y0; y < y0+h; y++ {
		ra := a.Pix[y*a.Stride:]
		rb := b.Pix[y*b.Stride:]
		for x := x0; x < x0+w; x++ {
			da := float64(ra[x]) - meanA
			db := float64(rb[x]) - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}
