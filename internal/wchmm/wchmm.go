// Package wchmm builds the tree-structured lexicon (component C5): a
// shared-prefix compilation of per-word pronunciation HMMs, the
// "word-conjunction HMM" the reference implementation's wchmm.c builds
// at startup and hands to the pass-1 beam search read-only.
//
// Actual HMM output-probability computation and acoustic-model file
// loading are external collaborators (spec §1's Non-goals); this
// package only assembles the node graph and its context-dependent
// output-set bindings, addressed by the small OutputSet type the
// caller's acoustic model resolves at search time.
package wchmm

import "fmt"

// PhoneID indexes into the logical phone set supplied at Build time.
type PhoneID int

// WordID indexes into the dictionary word list; also used as the
// "stend" marker on a tree node, with InvalidWord meaning "no word
// ends here".
type WordID int32

const InvalidWord WordID = -1

// CategoryID groups words for grammar-mode per-category trees (spec
// §4.5 step 4, I6). Category 0 is used when the caller isn't running
// in grammar mode.
type CategoryID int

// Phone is one logical HMM phone: its state count and transition
// topology, plus the context-dependent output sets bound to it at tree
// build time. States is the count excluding the non-emitting
// entry/exit pseudostates (spec's "S-2 nodes" per phone).
type Phone struct {
	Name     string
	States   int
	IsPseudo bool

	// SelfLoop[s] and Next[s] are the log-domain self/next transition
	// weights for emitting state s (0-indexed among the S emitting
	// states). Skip[s] lists (targetState, logProb) pairs beyond the
	// immediate next state — the "overflow arc list" spec §4.5 step 3
	// names for multipath topologies.
	SelfLoop []float32
	Next     []float32
	Skip     [][]SkipArc

	// DefaultOut is the context-independent output set used for
	// interior phones (spec §4.5 step 4).
	DefaultOut OutputSet
	// LeftCD / RightCD key the context-dependent sets bound to a
	// word-final / word-initial instance of this phone by the
	// neighboring phone's name. Absent entries fall back to DefaultOut.
	LeftCD  map[string]OutputSet
	RightCD map[string]OutputSet
}

// SkipArc is one overflow transition beyond the immediate next state.
type SkipArc struct {
	ToState int
	LogProb float32
}

// OutputSet identifies which output-probability table a node's HMM
// state reads from; the acoustic model (external collaborator) owns
// the mapping from OutputSet to an actual probability function.
type OutputSet int

// Word is one dictionary entry (spec §3's "Dictionary word").
type Word struct {
	ID             WordID
	Output         string
	Internal       string
	Phones         []PhoneID
	Category       CategoryID
	UnigramPenalty float32
}

func (w Word) HeadPhone() PhoneID { return w.Phones[0] }
func (w Word) TailPhone() PhoneID { return w.Phones[len(w.Phones)-1] }

// Node is one entry of the flat lexicon-tree node array (spec §3's
// "Lexicon tree node"). Node 0..len(Arcs)-1 addressing is by slice
// index into Tree.Nodes; indices are stable once Build returns (I3's
// "node array may be reallocated during construction" applies only
// mid-build, never after).
type Node struct {
	Out OutputSet

	SelfLoop float32
	NextProb float32
	Overflow []SkipArc // extra (toNodeDelta, logProb) arcs beyond the implicit next-node one

	Stend WordID // InvalidWord unless this node is a word's unique end node

	// Children holds the node's immediate tree-successor node indices;
	// a node with more than one child is a branch point. Factoring
	// holds the 1-gram precomputed max-over-reachable-words log
	// probability for a branching node (spec §4.5 step 7), taken over
	// every word whose phone sequence passes through this branch; it
	// is only meaningful when built with Factor1Gram.
	Children  []int
	Factoring float32

	Category CategoryID // grammar-mode per-category tree key (I6); 0 otherwise
}

// FactorMode selects how branching-node LM scores are precomputed.
type FactorMode int

const (
	Factor2Gram FactorMode = iota // store successor ids only; caller scores at run time
	Factor1Gram                   // precompute max log P(w) over successors
)

// Tree is the built, immutable lexicon (spec's I1-I3 hold once Build
// returns). StartNodes holds every node reachable as a word head (I2);
// WordEnd maps a word id to its unique end node (I1, I5).
type Tree struct {
	Nodes      []Node
	StartNodes []int
	WordEnd    map[WordID]int
	Factor     FactorMode

	// wordHead records, for every inserted word, the node index its
	// first phone's first state landed on — read through WordHeadNode,
	// e.g. by tests validating P3.
	wordHead map[WordID]int
}

// WordHeadNode reports the start node for word id, for coverage tests
// (spec P3: pressing all tokens from the start set and reading back by
// stend yields w exactly).
func (t *Tree) WordHeadNode(w WordID) (int, bool) {
	n, ok := t.wordHead[w]
	return n, ok
}

// ErrMissingCDSet is returned by Build in strict mode, or logged and
// recovered from by falling back to the phone's DefaultOut in lenient
// mode (spec §4.5's failure-mode paragraph).
type ErrMissingCDSet struct {
	Phone    string
	Neighbor string
	Category CategoryID
}

func (e *ErrMissingCDSet) Error() string {
	return fmt.Sprintf("wchmm: no context-dependent output set for phone %q next to %q (category %d)", e.Phone, e.Neighbor, e.Category)
}
