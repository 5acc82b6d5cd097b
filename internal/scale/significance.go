package scale

// Emphasis grades how strongly a significance marker is drawn.
type Emphasis string

const (
	EmphasisNone Emphasis = "none"
	EmphasisLow  Emphasis = "low"
	EmphasisHigh Emphasis = "high"
)

// Tier is the marker a p-value earns. Size is the marker size tier:
// 0 hidden, 1 marginal, 2 standard, 3 largest.
type Tier struct {
	Visible  bool     `json:"visible"`
	Emphasis Emphasis `json:"emphasis"`
	Size     int      `json:"size"`
}

// MarkerTierFor maps a p-value to its marker tier. The 0.01 / 0.05 / 0.1
// thresholds are a fixed contract; each upper bound is exclusive, so
// exactly 0.05 is not significant at the 0.05 level.
func MarkerTierFor(p *float64) Tier {
	switch {
	case p == nil || *p >= 0.1:
		return Tier{Emphasis: EmphasisNone}
	case *p >= 0.05:
		return Tier{Visible: true, Emphasis: EmphasisLow, Size: 1}
	case *p >= 0.01:
		return Tier{Visible: true, Emphasis: EmphasisHigh, Size: 2}
	default:
		return Tier{Visible: true, Emphasis: EmphasisHigh, Size: 3}
	}
}
