package qrdecode

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 92

// Prepare decodes data and, when it is larger than threshold bytes, scales
// it so the longest side is at most maxDim and re-encodes it as JPEG.
// Smaller files are used as they are. The bool reports a re-encode.
func Prepare(data []byte, threshold int64, maxDim, maxPixels int) (*Input, bool, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, false, fmt.Errorf("%w: %dx%d pixels", ErrOversized, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if int64(len(data)) <= threshold {
		return &Input{Image: img, Data: data, MIME: "image/" + format}, false, nil
	}

	scaled := Downscale(img, maxDim)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, false, fmt.Errorf("failed to re-encode image: %w", err)
	}
	return &Input{Image: scaled, Data: buf.Bytes(), MIME: "image/jpeg"}, true, nil
}

// Downscale returns img scaled so neither side exceeds maxDim, keeping the
// aspect ratio. Images already small enough are returned unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return img
	}

	nw := max(1, w*maxDim/longest)
	nh := max(1, h*maxDim/longest)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
