package screen

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/GriffinCanCode/good-listener/backend/vision/internal/errors"
)

// Decode decodes png, jpeg, gif, bmp, tiff or webp data into an origin-anchored RGBA image.
func Decode(data []byte) (*image.RGBA, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIncompatibleInput, "decode image")
	}
	rgba := ToRGBA(img)
	if rgba.Rect.Empty() {
		return nil, apperrors.Newf(apperrors.CodeIncompatibleInput, "empty %s image", format)
	}
	return rgba, nil
}

// DecodeFile reads and decodes an image file.
func DecodeFile(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIOFailure, "read image").WithMetadata("path", path)
	}
	return Decode(data)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIncompatibleInput, "encode png")
	}
	return buf.Bytes(), nil
}

// ToRGBA returns img as an RGBA image whose bounds start at the origin.
// Origin-anchored RGBA input is returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Rect, img, b.Min, draw.Src)
	return out
}
