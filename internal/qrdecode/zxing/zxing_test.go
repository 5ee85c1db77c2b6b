package zxing

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/librarydesk/internal/qrdecode"
)

func qrImage(t *testing.T, text string, size int) image.Image {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	require.NoError(t, err)
	// Copy into a plain gray image so the decoder never sees a BitMatrix.
	img := image.NewGray(m.Bounds())
	draw.Draw(img, img.Bounds(), m, image.Point{}, draw.Src)
	return img
}

func invert(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			out.SetGray(x, y, color.Gray{Y: 255 - g.Y})
		}
	}
	return out
}

func TestStrategiesDecodeClearCode(t *testing.T) {
	in := &qrdecode.Input{Image: qrImage(t, "LIB-00042", 300)}

	for _, s := range []*Strategy{Hybrid(), TryHarder(), Pure(), GlobalHistogram()} {
		t.Run(s.Name(), func(t *testing.T) {
			text, err := s.Decode(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, "LIB-00042", text)
		})
	}
}

func TestInvertedReadsLightOnDark(t *testing.T) {
	in := &qrdecode.Input{Image: invert(qrImage(t, "LIB-00007", 300))}

	text, err := Inverted().Decode(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "LIB-00007", text)
}

func TestBlankImageIsNoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 200, 200))
	draw.Draw(blank, blank.Bounds(), image.White, image.Point{}, draw.Src)

	_, err := Hybrid().Decode(context.Background(), &qrdecode.Input{Image: blank})
	assert.ErrorIs(t, err, qrdecode.ErrNoCode)
}

func TestDecodeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Hybrid().Decode(ctx, &qrdecode.Input{Image: qrImage(t, "X", 100)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrdersCoverSameStrategies(t *testing.T) {
	names := func(ss []qrdecode.Strategy) map[string]bool {
		m := map[string]bool{}
		for _, s := range ss {
			m[s.Name()] = true
		}
		return m
	}
	assert.Equal(t, names(DefaultOrder()), names(IOSOrder()))
	assert.Equal(t, "zxing-hybrid", DefaultOrder()[0].Name())
	assert.Equal(t, "zxing-try-harder", IOSOrder()[0].Name())
}
