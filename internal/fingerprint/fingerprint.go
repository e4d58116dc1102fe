// Package fingerprint computes cheap identity signals for captured frames.
//
// Hash is an exact content fingerprint: equal pixel bytes always give equal values, so two
// different hashes prove two frames differ. Equal hashes are only a fast-path hint since
// the hash is not collision free. Perceptual hashes are a separate near-duplicate signal.
package fingerprint

import (
	"image"
	"image/draw"

	"github.com/cespare/xxhash/v2"
	"github.com/corona10/goimagehash"
)

// Hash returns a 64-bit fingerprint of the raw pixel bytes of img.
func Hash(img image.Image) uint64 {
	return xxhash.Sum64(pixels(img))
}

// pixels returns the backing pixel buffer, converting to RGBA for other image types.
func pixels(img image.Image) []byte {
	switch m := img.(type) {
	case nil:
		return nil
	case *image.RGBA:
		return m.Pix
	case *image.NRGBA:
		return m.Pix
	case *image.Gray:
		return m.Pix
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba.Pix
}

// Perceptual computes a pHash for near-duplicate detection.
func Perceptual(img image.Image) (*goimagehash.ImageHash, error) {
	return goimagehash.PerceptionHash(img)
}

// Distance returns the Hamming distance between two perceptual hashes.
func Distance(a, b *goimagehash.ImageHash) (int, error) {
	return a.Distance(b)
}
