package search1

import "github.com/doismellburning/juliusgo/internal/wchmm"

// AcousticModel supplies per-frame state output log-probabilities; HMM
// parameter files and the MFCC front end that produced the input
// vectors are external collaborators (spec §1's Non-goals).
type AcousticModel interface {
	// OutputLogProb returns the log output probability of out at frame
	// t, with IWCD (inter-word context dependence) caching left to the
	// implementation — spec §4.6 names this caching requirement but the
	// cache itself lives behind this interface, not in search1.
	OutputLogProb(out wchmm.OutputSet, t int) float32
}

// LanguageModel supplies cross-word transition scores. Isolated-word
// and DFA grammars are expected to implement this with a grammar-aware
// variant that encodes category-pair constraints as -Inf scores for
// disallowed transitions; N-gram models look up an actual log
// probability. N-gram file parsing and grammar/DFA compilation
// themselves are external collaborators (spec §1's Non-goals).
type LanguageModel interface {
	// CrossWordScore returns the LM log probability of transitioning
	// from a word ending in fromWord (wchmm.InvalidWord at the very
	// first word of an utterance) to a word beginning at toHead.
	// -Inf (or a sufficiently negative sentinel) marks a disallowed
	// transition.
	CrossWordScore(fromWord wchmm.WordID, toHead int) float32
}
