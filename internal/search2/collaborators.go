package search2

import "github.com/doismellburning/juliusgo/internal/wchmm"

// Candidate is one next-word choice offered to an expansion step.
type Candidate struct {
	Word          wchmm.WordID
	LMScore       float32
	IsSilenceHead bool
}

// NextWordSource enumerates words grammatically or statistically
// allowed immediately before the hypothesis's current oldest word,
// at its assumed left frame t0 (spec §4.8 step 1). N-gram and DFA
// grammars are both external collaborators (spec §1's Non-goals) that
// implement this differently: N-gram sources look up active trellis
// words near t0 with their N-gram probability toward seq's context;
// DFA sources enumerate grammar-legal predecessors of seq[0],
// including short-pause-skip variants.
type NextWordSource interface {
	Candidates(seq []wchmm.WordID, t0 int) []Candidate
}

// Rescorer extends a hypothesis's forward Viterbi DP column backward
// through a candidate word's phones (spec §4.8 step 2). Acoustic
// models, HMM parameters, and cross-word IWCD resolution are external
// collaborators; Rescorer is the seam between this package and them.
type Rescorer interface {
	// ForwardScore returns the new g column (keyed by frame) after
	// prepending v ending at rightFrame, plus the frame within that
	// column holding the best (highest) score.
	ForwardScore(v wchmm.WordID, rightFrame int) (g map[int]float32, bestFrame int)
}
