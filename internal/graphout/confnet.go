package graphout

import "sort"

// ConfusionSlot is one position in a confusion network: a set of
// competing arcs (including an optional silence/null placeholder)
// spanning roughly the same interval.
type ConfusionSlot struct {
	Arcs []*Arc
}

// ConfusionNetwork clusters a topologically-sorted arc list into
// time-ordered equivalence classes (spec §4.9 step 7, optional).
// Graph.PostProcess must have run first so arcs carry ids and
// posteriors.
func ConfusionNetwork(arcs []*Arc) []ConfusionSlot {
	sorted := make([]*Arc, len(arcs))
	copy(sorted, arcs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var slots []ConfusionSlot
	used := make(map[*Arc]bool)
	for _, a := range sorted {
		if used[a] {
			continue
		}
		slot := ConfusionSlot{Arcs: []*Arc{a}}
		used[a] = true
		for _, b := range sorted {
			if used[b] {
				continue
			}
			if overlaps(a, b) {
				slot.Arcs = append(slot.Arcs, b)
				used[b] = true
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

func overlaps(a, b *Arc) bool {
	return a.LeftFrame < b.RightFrame && b.LeftFrame < a.RightFrame
}
