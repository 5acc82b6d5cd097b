package pipeline

import "sort"

// CategorySegment describes a contiguous run of genes sharing a category in
// the final sorted sequence. EndIndex is inclusive. Segments partition
// [0, gene count) in order, without gaps or overlap.
type CategorySegment struct {
	Category   string `json:"category"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Count      int    `json:"count"`
}

// Dataset is the aggregate handed to rendering and export. It is built once
// per successful upload and must be treated as read-only afterwards.
type Dataset struct {
	Genes           []GeneRecord      `json:"genes"`
	ComparisonNames []string          `json:"comparison_names"`
	Segments        []CategorySegment `json:"segments"`
}

// GroupAndSort partitions genes by exact category string, keeps categories
// in first-encountered order, and sorts each group ascending by the primary
// comparison value. Nil values sort after all numeric values; ties keep
// input order. The input slice is not modified.
func GroupAndSort(genes []GeneRecord) []GeneRecord {
	var order []string
	groups := make(map[string][]GeneRecord)
	for _, g := range genes {
		if _, ok := groups[g.Category]; !ok {
			order = append(order, g.Category)
		}
		groups[g.Category] = append(groups[g.Category], g)
	}

	out := make([]GeneRecord, 0, len(genes))
	for _, cat := range order {
		group := groups[cat]
		sort.SliceStable(group, func(i, j int) bool {
			return primaryLess(group[i], group[j])
		})
		out = append(out, group...)
	}
	return out
}

// primaryLess orders genes by their first comparison value. Nil is treated
// as greater than every number so unmeasured genes settle at the end of
// their group deterministically.
func primaryLess(a, b GeneRecord) bool {
	av := primaryValue(a)
	bv := primaryValue(b)
	switch {
	case av == nil:
		return false
	case bv == nil:
		return true
	default:
		return *av < *bv
	}
}

func primaryValue(g GeneRecord) *float64 {
	if len(g.Values) == 0 {
		return nil
	}
	return g.Values[0]
}

// Segments scans an already grouped gene sequence and emits one segment per
// run of equal categories.
func Segments(genes []GeneRecord) []CategorySegment {
	var segs []CategorySegment
	for i, g := range genes {
		if i > 0 && segs[len(segs)-1].Category == g.Category {
			last := &segs[len(segs)-1]
			last.EndIndex = i
			last.Count++
			continue
		}
		segs = append(segs, CategorySegment{
			Category:   g.Category,
			StartIndex: i,
			EndIndex:   i,
			Count:      1,
		})
	}
	return segs
}
