package geophys

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// Render maps valid cells linearly from [min, max] to opaque gray 0..255 and
// leaves NaN cells fully transparent. A grid without valid cells renders
// entirely transparent; a constant grid renders every valid cell black.
func Render(g Grid) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))

	lo, hi, ok := bounds(g.Values)
	if !ok {
		transparent := color.NRGBA{}
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				img.SetNRGBA(x, y, transparent)
			}
		}
		return img
	}

	span := float64(hi) - float64(lo)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.At(x, y)
			if isNaN(v) {
				img.SetNRGBA(x, y, color.NRGBA{})
				continue
			}
			var gray uint8
			if span > 0 {
				gray = uint8(math.Round((float64(v) - float64(lo)) / span * 255))
			}
			img.SetNRGBA(x, y, color.NRGBA{R: gray, G: gray, B: gray, A: 255})
		}
	}
	return img
}

// bounds returns the min and max over non-NaN values.
func bounds(values []float32) (lo, hi float32, ok bool) {
	for _, v := range values {
		if isNaN(v) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi, ok
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
