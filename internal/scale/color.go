// Package scale maps fold-change values to display colors and p-values to
// significance marker tiers. Everything here is a pure function of its
// inputs; rendering layers call these with primitives and get primitives
// back.
package scale

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/foldmap/server/pkg/colormap"
)

// Mode selects the scalar-to-color strategy.
type Mode string

const (
	ModeLinear   Mode = "linear"
	ModeLog      Mode = "log"
	ModeQuantile Mode = "quantile"
)

// ParseMode validates a mode string, defaulting empty input to linear.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeLinear, nil
	case ModeLinear, ModeLog, ModeQuantile:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown color mode %q (want linear, log or quantile)", s)
	}
}

// NeutralColor marks cells with no measurement. It sits outside both ramps
// and the diverging palette so missing data never reads as a real value.
const NeutralColor = "#cccccc"

// foldChangeRange is the |log2FC| treated as fully saturated. Log mode
// compresses magnitudes first and then applies the same range.
const foldChangeRange = 3.0

const quantileBins = 7

// Scale holds the dataset-wide state a mode needs, so many cells can be
// mapped without recomputing quantile breakpoints. A Scale must not be
// reused across datasets or modes.
type Scale struct {
	mode   Mode
	breaks []float64
}

// New builds a scale for one dataset and mode. Only quantile mode inspects
// the value set; the other modes are per-cell rules.
func New(mode Mode, all []*float64) *Scale {
	s := &Scale{mode: mode}
	if mode == ModeQuantile {
		s.breaks = QuantileBreaks(all)
	}
	return s
}

// ColorFor maps one fold-change value to a hex color. Nil always maps to
// NeutralColor regardless of mode.
func (s *Scale) ColorFor(v *float64) string {
	if v == nil {
		return NeutralColor
	}
	switch s.mode {
	case ModeLog:
		t := math.Copysign(math.Log2(math.Abs(*v)+1), *v)
		return rampColor(t)
	case ModeQuantile:
		if len(s.breaks) == 0 {
			return NeutralColor
		}
		bin := 0
		for bin < len(s.breaks) && *v > s.breaks[bin] {
			bin++
		}
		return colormap.Hex(colormap.RdBu7[bin])
	default:
		return rampColor(*v)
	}
}

// ColorFor is the single-shot form of Scale.ColorFor: deterministic over
// (value, allValues, mode) with no hidden state.
func ColorFor(v *float64, all []*float64, mode Mode) string {
	return New(mode, all).ColorFor(v)
}

// rampColor applies the shared sign/intensity rule: saturation grows
// linearly with |v| up to foldChangeRange, red for positive, blue for
// negative, white at zero.
func rampColor(v float64) string {
	intensity := math.Min(math.Abs(v)/foldChangeRange, 1)
	if v < 0 {
		return colormap.Hex(colormap.WhiteBlue.At(intensity))
	}
	return colormap.Hex(colormap.WhiteRed.At(intensity))
}

// QuantileBreaks computes the 6 breakpoints splitting the non-nil values
// into 7 equal-rank bins. Returns nil when no values are present.
func QuantileBreaks(all []*float64) []float64 {
	data := make(stats.Float64Data, 0, len(all))
	for _, v := range all {
		if v != nil {
			data = append(data, *v)
		}
	}
	if len(data) == 0 {
		return nil
	}

	breaks := make([]float64, 0, quantileBins-1)
	for i := 1; i < quantileBins; i++ {
		q, err := stats.Percentile(data, float64(i)*100/quantileBins)
		if err != nil {
			// Percentile only fails on empty input or out-of-range
			// percentiles; with a single value fall back to that value.
			q = data[0]
		}
		breaks = append(breaks, q)
	}
	return breaks
}
