// Package layout computes display metrics for the heatmap grid from
// measured text extents. It knows nothing about the drawing surface beyond
// the injected text-measurement capability.
package layout

import "strconv"

// TextMeasurer reports the rendered width of a string under the active
// font. Implemented by the gg-backed Measurer; tests inject fakes.
type TextMeasurer interface {
	MeasureString(s string) float64
}

// ColumnWidths returns one width per column: the widest of the header and
// every formatted cell, plus padding, floored at min. cells holds one slice
// per column (not per row). Must be recomputed whenever the font or the
// dataset changes.
func ColumnWidths(headers []string, cells [][]string, m TextMeasurer, padding, min float64) []float64 {
	widths := make([]float64, len(headers))
	for i, h := range headers {
		w := m.MeasureString(h)
		if i < len(cells) {
			for _, cell := range cells[i] {
				if cw := m.MeasureString(cell); cw > w {
					w = cw
				}
			}
		}
		w += padding
		if w < min {
			w = min
		}
		widths[i] = w
	}
	return widths
}

// Offsets returns the running prefix sum of widths: the x position of each
// column's left edge.
func Offsets(widths []float64) []float64 {
	offsets := make([]float64, len(widths))
	x := 0.0
	for i, w := range widths {
		offsets[i] = x
		x += w
	}
	return offsets
}

// FormatValue renders a nullable numeric cell the way the grid displays it.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
