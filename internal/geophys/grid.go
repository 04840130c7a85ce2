// Package geophys decodes scaled integer rasters into geophysical values and
// renders them as grayscale images.
package geophys

import (
	"fmt"
	"math"
)

// Attrs carries the packing attributes of a raster variable.
type Attrs struct {
	Fill    int16
	HasFill bool
	Scale   float32
	Offset  float32
}

// DefaultAttrs is the identity packing with no fill value.
func DefaultAttrs() Attrs { return Attrs{Scale: 1} }

// Grid is a row-major raster of decoded values. NaN marks missing cells.
type Grid struct {
	Width  int
	Height int
	Values []float32
}

// At returns the value at column x, row y.
func (g Grid) At(x, y int) float32 { return g.Values[y*g.Width+x] }

// Valid counts the non-NaN cells.
func (g Grid) Valid() int {
	n := 0
	for _, v := range g.Values {
		if !isNaN(v) {
			n++
		}
	}
	return n
}

// Decode unpacks raw (row-major, w*h cells). A cell equal to the fill value
// becomes NaN; any other cell becomes raw*scale+offset in single precision.
func Decode(raw []int16, w, h int, attrs Attrs) (Grid, error) {
	if w < 0 || h < 0 || len(raw) != w*h {
		return Grid{}, fmt.Errorf("raster has %d cells, want %dx%d", len(raw), w, h)
	}
	values := make([]float32, len(raw))
	nan := float32(math.NaN())
	for i, r := range raw {
		if attrs.HasFill && r == attrs.Fill {
			values[i] = nan
			continue
		}
		// The conversion rounds the product, so it is never fused with the add.
		values[i] = float32(float32(r)*attrs.Scale) + attrs.Offset
	}
	return Grid{Width: w, Height: h, Values: values}, nil
}

func isNaN(v float32) bool { return v != v }
