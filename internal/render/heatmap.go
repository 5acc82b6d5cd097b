// Package render draws grouped heatmaps using fogleman/gg.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"

	"github.com/foldmap/server/internal/layout"
	"github.com/foldmap/server/internal/pipeline"
	"github.com/foldmap/server/internal/scale"
	"github.com/foldmap/server/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	RowHeight   float64
	FontSize    float64
	FontPath    string
	CellPadding float64
	MinColWidth float64
}

// categoryBandWidth is the width of the colored strip marking category runs.
const categoryBandWidth = 14.0

// HeatmapRenderer renders datasets as PNG heatmaps. Contexts are sized per
// dataset, so unlike fixed-size tile renderers only the encode buffers are
// pooled.
type HeatmapRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewHeatmapRenderer creates a new heatmap renderer.
func NewHeatmapRenderer(cfg Config) *HeatmapRenderer {
	return &HeatmapRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 64*1024))
			},
		},
	}
}

// Render draws the dataset: one row per gene in final order, one column per
// comparison, cell colors from the scale, significance dots sized by tier
// and a category band on the left. fontSize <= 0 falls back to the
// configured default.
func (r *HeatmapRenderer) Render(ds *pipeline.Dataset, mode scale.Mode, fontSize float64) ([]byte, error) {
	if fontSize <= 0 {
		fontSize = r.config.FontSize
	}

	measurer, err := layout.NewMeasurer(r.config.FontPath, fontSize)
	if err != nil {
		return nil, err
	}

	// Column metrics from headers and formatted cell text.
	headers := ds.ComparisonNames
	cells := make([][]string, len(headers))
	for i := range headers {
		col := make([]string, 0, len(ds.Genes))
		for _, g := range ds.Genes {
			col = append(col, layout.FormatValue(valueAt(g.Values, i)))
		}
		cells[i] = col
	}
	widths := layout.ColumnWidths(headers, cells, measurer, r.config.CellPadding, r.config.MinColWidth)
	offsets := layout.Offsets(widths)

	labelW := r.config.MinColWidth
	for _, g := range ds.Genes {
		if w := measurer.MeasureString(g.ID) + r.config.CellPadding; w > labelW {
			labelW = w
		}
	}

	rowH := r.config.RowHeight
	headerH := rowH * 1.5
	gridX := categoryBandWidth + labelW
	width := int(gridX + sum(widths))
	height := int(headerH + rowH*float64(len(ds.Genes)))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("dataset produces an empty canvas")
	}

	dc := gg.NewContext(width, height)
	if r.config.FontPath != "" {
		if err := dc.LoadFontFace(r.config.FontPath, fontSize); err != nil {
			return nil, fmt.Errorf("failed to load font %s: %w", r.config.FontPath, err)
		}
	}

	dc.SetColor(color.White)
	dc.Clear()

	// Column headers
	dc.SetRGB(0, 0, 0)
	for i, name := range headers {
		cx := gridX + offsets[i] + widths[i]/2
		dc.DrawStringAnchored(name, cx, headerH/2, 0.5, 0.5)
	}

	// Dataset-wide color scale over every comparison value.
	var all []*float64
	for _, g := range ds.Genes {
		all = append(all, g.Values...)
	}
	sc := scale.New(mode, all)

	for row, g := range ds.Genes {
		y := headerH + float64(row)*rowH

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(g.ID, categoryBandWidth+4, y+rowH/2, 0, 0.5)

		for i := range headers {
			x := gridX + offsets[i]
			hex := sc.ColorFor(valueAt(g.Values, i))
			dc.SetHexColor(hex)
			dc.DrawRectangle(x, y, widths[i], rowH)
			dc.Fill()

			tier := scale.MarkerTierFor(valueAt(g.PValues, i))
			if tier.Visible {
				if tier.Emphasis == scale.EmphasisLow {
					dc.SetRGB(0.4, 0.4, 0.4)
				} else {
					dc.SetRGB(0, 0, 0)
				}
				dc.DrawCircle(x+widths[i]/2, y+rowH/2, 1.5*float64(tier.Size))
				dc.Fill()
			}
		}
	}

	// Category band: one colored run per segment.
	for i, seg := range ds.Segments {
		y := headerH + float64(seg.StartIndex)*rowH
		h := float64(seg.Count) * rowH
		dc.SetColor(colormap.Categorical.AtIndex(i))
		dc.DrawRectangle(0, y, categoryBandWidth, h)
		dc.Fill()
	}

	return r.encodeContext(dc)
}

func valueAt(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func (r *HeatmapRenderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
