package layout

import (
	"fmt"

	"github.com/fogleman/gg"
)

// Measurer measures text with fogleman/gg. It owns a throwaway 1x1 context
// whose only job is carrying the font face.
type Measurer struct {
	dc *gg.Context
}

// NewMeasurer builds a measurer for the given font. An empty fontPath keeps
// gg's built-in face, which is good enough for width estimation in tests
// and headless setups.
func NewMeasurer(fontPath string, points float64) (*Measurer, error) {
	dc := gg.NewContext(1, 1)
	if fontPath != "" {
		if err := dc.LoadFontFace(fontPath, points); err != nil {
			return nil, fmt.Errorf("failed to load font %s: %w", fontPath, err)
		}
	}
	return &Measurer{dc: dc}, nil
}

// MeasureString returns the rendered width of s in pixels.
func (m *Measurer) MeasureString(s string) float64 {
	w, _ := m.dc.MeasureString(s)
	return w
}
