// Package watermark composites an attribution caption onto a raster. It has no
// UI or I/O dependencies.
package watermark

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Layout fixes how the caption is sized and placed. Scales and margins are
// fractions of the raster dimensions.
type Layout struct {
	FontScale   float64
	MinFontSize float64
	MarginX     float64
	MarginY     float64
	Fill        color.NRGBA
	Shadow      color.NRGBA
	ShadowBlur  float64
}

var DefaultLayout = Layout{
	FontScale:   0.04,
	MinFontSize: 24,
	MarginX:     0.04,
	MarginY:     0.06,
	Fill:        color.NRGBA{R: 255, G: 255, B: 255, A: 217},
	Shadow:      color.NRGBA{A: 230},
	ShadowBlur:  10,
}

var (
	parseOnce sync.Once
	boldFont  *opentype.Font
	parseErr  error
)

func FontSize(width int, layout Layout) float64 {
	return math.Max(layout.MinFontSize, float64(width)*layout.FontScale)
}

// Apply returns a copy of src, same size and anchored at the origin, with
// caption drawn right and bottom aligned. src is not modified.
func Apply(src image.Image, caption string, layout Layout) (*image.NRGBA, error) {
	dst := imaging.Clone(src)
	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 || caption == "" {
		return dst, nil
	}

	face, err := newFace(FontSize(w, layout))
	if err != nil {
		return nil, err
	}
	defer face.Close()

	textWidth := font.MeasureString(face, caption)
	x := float64(w) - float64(textWidth)/64 - float64(w)*layout.MarginX
	y := float64(h) - float64(h)*layout.MarginY
	dot := fixed.Point26_6{
		X: fixed.Int26_6(math.Round(x * 64)),
		Y: fixed.Int26_6(math.Round(y * 64)),
	}

	if layout.Shadow.A > 0 {
		shadow := image.NewNRGBA(bounds)
		(&font.Drawer{Dst: shadow, Src: image.NewUniform(layout.Shadow), Face: face, Dot: dot}).DrawString(caption)
		var blurred image.Image = shadow
		if layout.ShadowBlur > 0 {
			// canvas shadowBlur is twice the gaussian sigma
			blurred = imaging.Blur(shadow, layout.ShadowBlur/2)
		}
		draw.Draw(dst, bounds, blurred, bounds.Min, draw.Over)
	}

	(&font.Drawer{Dst: dst, Src: image.NewUniform(layout.Fill), Face: face, Dot: dot}).DrawString(caption)
	return dst, nil
}

func newFace(size float64) (font.Face, error) {
	parseOnce.Do(func() {
		boldFont, parseErr = opentype.Parse(gobold.TTF)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return opentype.NewFace(boldFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
