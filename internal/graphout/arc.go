// Package graphout implements the word graph / confusion network
// generator (component C9): arcs accumulate during pass 2 expansion,
// merge dynamically on exact duplicates, and a post-processing
// pipeline purges dead leaves, adjusts boundaries to a fixed point,
// merges near-duplicates, assigns topological ids, and computes a
// forward-backward posterior per arc.
//
// Grounded on the reference's graphout.c (wordgraph_novel/
// graph_node_exist_check for dynamic merge, and the
// purge/adjust/merge/bestfirst_index passes it runs once pass 2
// finishes).
package graphout

import "github.com/doismellburning/juliusgo/internal/wchmm"

// Arc is one word graph arc (spec §3's "Word graph arc"). Left/right
// context sets grow as merges fold duplicate arcs into one.
type Arc struct {
	ID               int
	WordID           wchmm.WordID
	LeftFrame        int
	RightFrame       int
	HeadPhone        wchmm.PhoneID
	TailPhone        wchmm.PhoneID
	FHead            float32
	FTail            float32
	GHead            float32
	GTail            float32
	LanguageScore    float32
	AcousticAverage  float32
	CMScore          float32
	LeftContextSet   []wchmm.PhoneID
	RightContextSet  []wchmm.PhoneID
	ForwardSum       float32
	BackwardSum      float32
	GraphPosterior   float32
}

// sameArc reports whether a and b are candidates for the dynamic
// "same word, same span, same boundary phone" merge graphout.c applies
// while searching is still in progress.
func sameArc(a, b *Arc) bool {
	return a.WordID == b.WordID &&
		a.LeftFrame == b.LeftFrame &&
		a.RightFrame == b.RightFrame &&
		a.HeadPhone == b.HeadPhone &&
		a.TailPhone == b.TailPhone
}

func mergeContext(dst *[]wchmm.PhoneID, src []wchmm.PhoneID) {
	for _, p := range src {
		found := false
		for _, q := range *dst {
			if q == p {
				found = true
				break
			}
		}
		if !found {
			*dst = append(*dst, p)
		}
	}
}
