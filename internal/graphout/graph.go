package graphout

import (
	"math"
	"sort"
)

// Graph is the session-global arc list accumulated during pass 2 and
// later post-processed into a finished word graph.
type Graph struct {
	arcs []*Arc
}

// New returns an empty Graph.
func New() *Graph { return &Graph{} }

// Arcs returns the current arc list (read-only view; callers must not
// mutate the returned slice in place).
func (g *Graph) Arcs() []*Arc { return g.arcs }

// Add records a new arc, merging it in place with an existing
// same-span duplicate when one exists (spec §4.9's "graphout search"
// dynamic merge). Returns the arc actually stored (either a, or the
// pre-existing arc it was merged into) and whether a merge happened.
func (g *Graph) Add(a *Arc) (*Arc, bool) {
	for _, existing := range g.arcs {
		if sameArc(existing, a) {
			mergeContext(&existing.LeftContextSet, a.LeftContextSet)
			mergeContext(&existing.RightContextSet, a.RightContextSet)
			if a.FHead+a.FTail > existing.FHead+existing.FTail {
				existing.GHead, existing.GTail = a.GHead, a.GTail
				existing.FHead, existing.FTail = a.FHead, a.FTail
				existing.LanguageScore = a.LanguageScore
				existing.AcousticAverage = a.AcousticAverage
			}
			return existing, true
		}
	}
	g.arcs = append(g.arcs, a)
	return a, false
}

// PostProcess runs spec §4.9's post-processing pipeline: leaf purge,
// optional depth cut, boundary adjustment to a fixed point, merge
// passes, topological id assignment, and forward-backward posterior
// computation.
func (g *Graph) PostProcess(startFrame, endFrame, maxDepthPerFrame, neighborMergeFrames int) {
	g.purgeLeaves(startFrame, endFrame)
	if maxDepthPerFrame > 0 {
		g.depthCut(maxDepthPerFrame)
	}
	g.adjustBoundaries()
	g.mergeExact()
	g.mergeSameBoundary()
	g.mergeNeighbors(neighborMergeFrames)
	g.assignTopologicalIDs()
	g.forwardBackward(startFrame, endFrame)
}

// purgeLeaves removes arcs that lie on no path from startFrame to
// endFrame: a forward reachability pass from startFrame, a backward
// reachability pass to endFrame, keep the intersection.
func (g *Graph) purgeLeaves(startFrame, endFrame int) {
	reachableForward := make(map[*Arc]bool)
	changed := true
	for changed {
		changed = false
		for _, a := range g.arcs {
			if reachableForward[a] {
				continue
			}
			if a.LeftFrame == startFrame {
				reachableForward[a] = true
				changed = true
				continue
			}
			for _, b := range g.arcs {
				if reachableForward[b] && b.RightFrame == a.LeftFrame {
					reachableForward[a] = true
					changed = true
					break
				}
			}
		}
	}

	reachableBackward := make(map[*Arc]bool)
	changed = true
	for changed {
		changed = false
		for _, a := range g.arcs {
			if reachableBackward[a] {
				continue
			}
			if a.RightFrame == endFrame {
				reachableBackward[a] = true
				changed = true
				continue
			}
			for _, b := range g.arcs {
				if reachableBackward[b] && b.LeftFrame == a.RightFrame {
					reachableBackward[a] = true
					changed = true
					break
				}
			}
		}
	}

	kept := g.arcs[:0]
	for _, a := range g.arcs {
		if reachableForward[a] && reachableBackward[a] {
			kept = append(kept, a)
		}
	}
	g.arcs = kept
}

// depthCut bounds the number of concurrent arcs covering any one
// frame, keeping the highest-scoring ones.
func (g *Graph) depthCut(maxPerFrame int) {
	countAt := func(frame int) int {
		n := 0
		for _, a := range g.arcs {
			if a.LeftFrame <= frame && frame < a.RightFrame {
				n++
			}
		}
		return n
	}

	sort.Slice(g.arcs, func(i, j int) bool {
		return g.arcs[i].FHead+g.arcs[i].FTail > g.arcs[j].FHead+g.arcs[j].FTail
	})

	var kept []*Arc
	frameLoad := make(map[int]int)
	for _, a := range g.arcs {
		over := false
		for f := a.LeftFrame; f < a.RightFrame; f++ {
			if frameLoad[f] >= maxPerFrame {
				over = true
				break
			}
		}
		if over {
			continue
		}
		for f := a.LeftFrame; f < a.RightFrame; f++ {
			frameLoad[f]++
		}
		kept = append(kept, a)
	}
	_ = countAt // retained for documentation of the invariant depthCut enforces
	g.arcs = kept
}

// adjustBoundaries implements spec §4.9 step 3: every arc may be
// preceded by left-context arcs ending at different frames; duplicate
// the arc per distinct boundary and drop any whose adjusted
// left_frame exceeds its right_frame. Iterates to a fixed point.
func (g *Graph) adjustBoundaries() {
	for iter := 0; iter < 8; iter++ {
		boundaries := make(map[int]map[int]bool) // arc index -> set of distinct predecessor right frames
		changedAny := false
		for i, a := range g.arcs {
			set := make(map[int]bool)
			for _, b := range g.arcs {
				if b.RightFrame == a.LeftFrame {
					set[b.RightFrame] = true
				}
			}
			if len(set) == 0 {
				set[a.LeftFrame] = true
			}
			boundaries[i] = set
		}

		var next []*Arc
		for i, a := range g.arcs {
			for lf := range boundaries[i] {
				if lf > a.RightFrame {
					changedAny = true
					continue
				}
				if lf == a.LeftFrame {
					next = append(next, a)
					continue
				}
				dup := *a
				dup.LeftFrame = lf
				next = append(next, &dup)
				changedAny = true
			}
		}
		g.arcs = next
		if !changedAny {
			break
		}
	}
}

func (g *Graph) mergeExact() {
	var kept []*Arc
	for _, a := range g.arcs {
		merged := false
		for _, k := range kept {
			if sameArc(k, a) && k.GHead == a.GHead && k.GTail == a.GTail {
				mergeContext(&k.LeftContextSet, a.LeftContextSet)
				mergeContext(&k.RightContextSet, a.RightContextSet)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, a)
		}
	}
	g.arcs = kept
}

func (g *Graph) mergeSameBoundary() {
	var kept []*Arc
	for _, a := range g.arcs {
		merged := false
		for _, k := range kept {
			if sameArc(k, a) {
				if a.GHead+a.GTail > k.GHead+k.GTail {
					k.GHead, k.GTail = a.GHead, a.GTail
				}
				mergeContext(&k.LeftContextSet, a.LeftContextSet)
				mergeContext(&k.RightContextSet, a.RightContextSet)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, a)
		}
	}
	g.arcs = kept
}

// mergeNeighbors folds arcs for the same word whose spans lie within
// withinFrames of each other, keeping the higher-scoring one.
func (g *Graph) mergeNeighbors(withinFrames int) {
	if withinFrames <= 0 {
		return
	}
	var kept []*Arc
	for _, a := range g.arcs {
		merged := false
		for _, k := range kept {
			if k.WordID != a.WordID {
				continue
			}
			if abs(k.LeftFrame-a.LeftFrame) <= withinFrames && abs(k.RightFrame-a.RightFrame) <= withinFrames {
				if a.GHead+a.GTail > k.GHead+k.GTail {
					k.GHead, k.GTail = a.GHead, a.GTail
					k.LeftFrame, k.RightFrame = a.LeftFrame, a.RightFrame
				}
				mergeContext(&k.LeftContextSet, a.LeftContextSet)
				mergeContext(&k.RightContextSet, a.RightContextSet)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, a)
		}
	}
	g.arcs = kept
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// assignTopologicalIDs sorts arcs by (left_frame, right_frame, f_head)
// and assigns sequential ids (spec §4.9 step 5).
func (g *Graph) assignTopologicalIDs() {
	sort.Slice(g.arcs, func(i, j int) bool {
		a, b := g.arcs[i], g.arcs[j]
		if a.LeftFrame != b.LeftFrame {
			return a.LeftFrame < b.LeftFrame
		}
		if a.RightFrame != b.RightFrame {
			return a.RightFrame < b.RightFrame
		}
		return a.FHead > b.FHead
	})
	for i, a := range g.arcs {
		a.ID = i
	}
}

// forwardBackward computes each arc's graph_cm posterior via
// amavg*duration*alpha plus link language scores combined by
// log-sum-exp (spec §4.9 step 6).
func (g *Graph) forwardBackward(startFrame, endFrame int) {
	const alpha = 1.0

	local := func(a *Arc) float32 {
		duration := float32(a.RightFrame - a.LeftFrame)
		return a.AcousticAverage*duration*alpha + a.LanguageScore
	}

	byLeft := make(map[int][]*Arc)
	byRight := make(map[int][]*Arc)
	for _, a := range g.arcs {
		byRight[a.LeftFrame] = append(byRight[a.LeftFrame], a)
		byLeft[a.RightFrame] = append(byLeft[a.RightFrame], a)
	}

	forward := make(map[*Arc]float32)
	for _, a := range g.arcs {
		if a.LeftFrame == startFrame {
			forward[a] = local(a)
		}
	}
	for pass := 0; pass < len(g.arcs)+1; pass++ {
		for _, a := range g.arcs {
			if _, ok := forward[a]; ok {
				continue
			}
			var scores []float32
			for _, pred := range byLeft[a.LeftFrame] {
				if s, ok := forward[pred]; ok {
					scores = append(scores, s)
				}
			}
			if len(scores) > 0 {
				forward[a] = logSumExp(scores) + local(a)
			}
		}
	}

	backward := make(map[*Arc]float32)
	for _, a := range g.arcs {
		if a.RightFrame == endFrame {
			backward[a] = local(a)
		}
	}
	for pass := 0; pass < len(g.arcs)+1; pass++ {
		for _, a := range g.arcs {
			if _, ok := backward[a]; ok {
				continue
			}
			var scores []float32
			for _, succ := range byRight[a.RightFrame] {
				if s, ok := backward[succ]; ok {
					scores = append(scores, s)
				}
			}
			if len(scores) > 0 {
				backward[a] = logSumExp(scores) + local(a)
			}
		}
	}

	var total []float32
	for _, a := range g.arcs {
		if a.RightFrame == endFrame {
			if f, ok := forward[a]; ok {
				total = append(total, f)
			}
		}
	}
	norm := logSumExp(total)

	for _, a := range g.arcs {
		f, fok := forward[a]
		b, bok := backward[a]
		if !fok || !bok {
			continue
		}
		a.ForwardSum = f
		a.BackwardSum = b
		a.GraphPosterior = float32(math.Exp(float64(f + b - local(a) - norm)))
	}
}

func logSumExp(xs []float32) float32 {
	if len(xs) == 0 {
		return float32(math.Inf(-1))
	}
	maxV := xs[0]
	for _, x := range xs[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(float64(x - maxV))
	}
	return maxV + float32(math.Log(sum))
}
