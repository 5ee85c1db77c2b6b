// Package zxing implements qrdecode strategies on top of the gozxing port of
// ZXing. Each strategy is one binarizer and hint combination.
package zxing

import (
	"context"
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/vbonduro/librarydesk/internal/qrdecode"
)

type binarizerFunc func(gozxing.LuminanceSource) gozxing.Binarizer

type Strategy struct {
	name      string
	binarizer binarizerFunc
	hints     map[gozxing.DecodeHintType]interface{}
	invert    bool
}

// Hybrid is the stock ZXing configuration: local-threshold binarization and
// no hints.
func Hybrid() *Strategy {
	return &Strategy{name: "zxing-hybrid", binarizer: gozxing.NewHybridBinarizer}
}

// TryHarder spends more time looking for finder patterns, which helps with
// small or skewed codes in large photos.
func TryHarder() *Strategy {
	return &Strategy{
		name:      "zxing-try-harder",
		binarizer: gozxing.NewHybridBinarizer,
		hints:     map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true},
	}
}

// Pure assumes the image is a clean, unrotated code with a quiet zone, such
// as a screenshot or a crop of a printed sheet.
func Pure() *Strategy {
	return &Strategy{
		name:      "zxing-pure",
		binarizer: gozxing.NewHybridBinarizer,
		hints:     map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_PURE_BARCODE: true},
	}
}

// GlobalHistogram uses one threshold for the whole image. It copes better
// than Hybrid with evenly lit, low-contrast photos.
func GlobalHistogram() *Strategy {
	return &Strategy{
		name:      "zxing-global-histogram",
		binarizer: gozxing.NewGlobalHistgramBinarizer,
		hints:     map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true},
	}
}

// Inverted reads light-on-dark codes.
func Inverted() *Strategy {
	return &Strategy{
		name:      "zxing-inverted",
		binarizer: gozxing.NewHybridBinarizer,
		hints:     map[gozxing.DecodeHintType]interface{}{gozxing.DecodeHintType_TRY_HARDER: true},
		invert:    true,
	}
}

// DefaultOrder is tried on desktop and Android uploads.
func DefaultOrder() []qrdecode.Strategy {
	return []qrdecode.Strategy{Hybrid(), TryHarder(), Pure(), GlobalHistogram(), Inverted()}
}

// IOSOrder starts with the slower configurations. iPhone photos are large
// and rarely frame the code squarely.
func IOSOrder() []qrdecode.Strategy {
	return []qrdecode.Strategy{TryHarder(), GlobalHistogram(), Hybrid(), Inverted(), Pure()}
}

func (s *Strategy) Name() string {
	return s.name
}

func (s *Strategy) Decode(ctx context.Context, in *qrdecode.Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if in == nil || in.Image == nil {
		return "", qrdecode.ErrUnsupported
	}

	src := gozxing.NewLuminanceSourceFromImage(in.Image)
	if s.invert {
		src = src.Invert()
	}
	bmp, err := gozxing.NewBinaryBitmap(s.binarizer(src))
	if err != nil {
		return "", fmt.Errorf("%w: %v", qrdecode.ErrUnsupported, err)
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, s.hints)
	if err != nil {
		return "", mapError(err)
	}
	return res.GetText(), nil
}

func mapError(err error) error {
	var (
		notFound gozxing.NotFoundException
		checksum gozxing.ChecksumException
		format   gozxing.FormatException
	)
	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%w: %v", qrdecode.ErrNoCode, err)
	case errors.As(err, &checksum), errors.As(err, &format):
		return fmt.Errorf("%w: %v", qrdecode.ErrUnreadable, err)
	default:
		return err
	}
}
