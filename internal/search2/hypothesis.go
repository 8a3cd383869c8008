// Package search2 implements the backward A*-style stack decoder
// (component C8): hypotheses are expanded in descending f = g + h
// order, where g is an exact forward Viterbi rescoring of the
// hypothesis's own word sequence and h is read from the pass-1 word
// trellis (component trellis) as an admissible heuristic.
//
// Grounded on the reference's search_bestfirst_main.c stack-decoding
// loop (next_word/scan_word/store_word_hypothesis and the
// envelope/word-envelope pruning it applies before pushing a new
// hypothesis back onto the global stack).
package search2

import "github.com/doismellburning/juliusgo/internal/wchmm"

// Hypothesis is one partial sentence under expansion, built
// right-to-left (spec §3's "Pass-2 hypothesis"). Words is kept oldest
// first; expand prepends each newly-enumerated word.
type Hypothesis struct {
	Words         []wchmm.WordID
	G             map[int]float32 // forward Viterbi DP column, keyed by frame
	BestBackFrame int
	Score         float32 // f = g[BestBackFrame] + h + LM
	LMTotal       float32
	Confidence    []float32 // per word, aligned with Words
	EndFlag       bool
	GraphPred     *Hypothesis
}

func (h *Hypothesis) clone() *Hypothesis {
	words := make([]wchmm.WordID, len(h.Words))
	copy(words, h.Words)
	g := make(map[int]float32, len(h.G))
	for k, v := range h.G {
		g[k] = v
	}
	conf := make([]float32, len(h.Confidence))
	copy(conf, h.Confidence)
	return &Hypothesis{
		Words:         words,
		G:             g,
		BestBackFrame: h.BestBackFrame,
		Score:         h.Score,
		LMTotal:       h.LMTotal,
		Confidence:    conf,
		EndFlag:       h.EndFlag,
		GraphPred:     h.GraphPred,
	}
}
