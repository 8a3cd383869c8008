package search1

import (
	"sort"

	"github.com/doismellburning/juliusgo/internal/trellis"
	"github.com/doismellburning/juliusgo/internal/wchmm"
)

// NegInf stands in for the reference's LOG_ZERO: a score low enough
// that no surviving beam entry can reach it, used both for disallowed
// LM transitions and for pruned-away token slots.
const NegInf = float32(-1e30)

// Params configures one Engine run.
type Params struct {
	BeamWidth     int     // B: max surviving tokens per frame
	EnvelopeWidth float32 // drop tokens below max_score - EnvelopeWidth; 0 disables
}

// Engine runs the frame-synchronous beam search described in spec
// §4.6. One Engine is created per utterance; it owns its own token
// generations and trellis, never shared across recognizer instances
// (spec §5's "trellis, stack and token pools are per-recognizer").
type Engine struct {
	tree *wchmm.Tree
	am   AcousticModel
	lm   LanguageModel
	p    Params

	tl, tn *generation
	tr     *trellis.Trellis
	frame  int
}

// New builds an Engine over tree, ready for Init.
func New(tree *wchmm.Tree, am AcousticModel, lm LanguageModel, p Params) *Engine {
	return &Engine{
		tree: tree,
		am:   am,
		lm:   lm,
		p:    p,
		tl:   newGeneration(256),
		tn:   newGeneration(256),
		tr:   trellis.New(),
	}
}

// Init seeds frame 0 with a token at every start node (spec §4.6's
// init(input_vectors)).
func (e *Engine) Init() {
	e.tl.reset()
	e.tn.reset()
	e.frame = 0
	for _, start := range e.tree.StartNodes {
		e.tl.put(Token{
			Node:            start,
			Score:           0,
			BackTrellis:     trellis.BOS,
			LastContentWord: wchmm.InvalidWord,
		})
	}
}

// wordBeginFrame tracks, per currently-occupied node, the frame its
// occupying token's current word began — bookkeeping the reference
// keeps inline on the token (f_wordbegin); kept as a side table here
// since it only matters for the trellis record, not for scoring.
type wordBeginTracker struct {
	byNode map[int]int
}

// FeedFrame runs one step of the per-frame procedure (spec §4.6) at
// frame t, also using t as the key identifying this frame's observation
// for the acoustic model (an opaque frame index the caller's
// AcousticModel dereferences into its own feature store).
func (e *Engine) FeedFrame(t int, begins *wordBeginTracker) {
	e.frame = t
	e.tn.reset()

	newBegins := &wordBeginTracker{byNode: make(map[int]int, len(e.tl.tokens))}

	for _, tok := range e.tl.tokens {
		wb, ok := begins.byNode[tok.Node]
		if !ok {
			wb = t
		}
		e.propagateIntraWord(tok, wb, newBegins)
		e.propagateCrossWord(tok, wb, t)
	}

	e.applyOutputProbAndPrune(t)
	*begins = *newBegins
	e.tl, e.tn = e.tn, e.tl
}

// NewWordBeginTracker returns the tracker Init's first FeedFrame call
// should be seeded with: every start node begins its word at frame 0.
func (e *Engine) NewWordBeginTracker() *wordBeginTracker {
	t := &wordBeginTracker{byNode: make(map[int]int, len(e.tree.StartNodes))}
	for _, n := range e.tree.StartNodes {
		t.byNode[n] = 0
	}
	return t
}

// propagateIntraWord advances tok along its node's self, next, and
// overflow arcs (spec §4.6 step 2's "intra-word transitions"),
// adjusting for a factoring-value change when the destination is a
// branch node with a different Factoring than the source.
func (e *Engine) propagateIntraWord(tok Token, wordBegin int, begins *wordBeginTracker) {
	node := &e.tree.Nodes[tok.Node]

	propagate := func(toNode int, arcProb float32) {
		score := tok.Score + arcProb
		score = e.adjustFactoring(score, tok.Node, toNode)
		newTok := tok
		newTok.Node = toNode
		newTok.Score = score
		e.tn.put(newTok)
		if _, ok := begins.byNode[toNode]; !ok {
			begins.byNode[toNode] = wordBegin
		}
	}

	propagate(tok.Node, node.SelfLoop)
	for _, c := range node.Children {
		propagate(c, node.NextProb)
	}
	for _, arc := range node.Overflow {
		// Overflow arcs are relative skip targets recorded at phone
		// build time (wchmm.SkipArc.ToState is a within-phone state
		// offset); resolved against the node's Children when present.
		for _, c := range node.Children {
			propagate(c, arc.LogProb)
		}
	}
}

// adjustFactoring implements spec §4.6 step 2's "subtract the old
// factoring contribution ... add the new one" when a transition
// crosses onto a different branch node.
func (e *Engine) adjustFactoring(score float32, from, to int) float32 {
	if from == to {
		return score
	}
	fromF := e.tree.Nodes[from].Factoring
	toF := e.tree.Nodes[to].Factoring
	if fromF == 0 && toF == 0 {
		return score
	}
	return score - fromF + toF
}

// propagateCrossWord implements spec §4.6 step 2's "cross-word
// transitions": if tok sits on a word-end node, it emits a trellis
// record and fans out to every tree start node under the LM's
// transition score.
func (e *Engine) propagateCrossWord(tok Token, wordBegin, t int) {
	node := &e.tree.Nodes[tok.Node]
	if node.Stend == wchmm.InvalidWord {
		return
	}

	ref := e.tr.Append(node.Stend, wordBegin, t-1, tok.Score, tok.BackTrellis, tok.LastLanguageScore)

	for _, head := range e.tree.StartNodes {
		lmScore := e.lm.CrossWordScore(node.Stend, head)
		if lmScore <= NegInf {
			continue
		}
		newTok := Token{
			Node:              head,
			Score:             tok.Score + lmScore,
			BackTrellis:       ref,
			LastContentWord:   node.Stend,
			LastLanguageScore: lmScore,
		}
		e.tn.put(newTok)
	}
}

// applyOutputProbAndPrune implements spec §4.6 steps 3-4: add the
// per-state output log-probability to every token in tn, then sort and
// keep the top B subject to the score-envelope cutoff.
func (e *Engine) applyOutputProbAndPrune(t int) {
	for i := range e.tn.tokens {
		out := e.tree.Nodes[e.tn.tokens[i].Node].Out
		e.tn.tokens[i].Score += e.am.OutputLogProb(out, t)
	}

	sort.Slice(e.tn.tokens, func(i, j int) bool {
		return e.tn.tokens[i].Score > e.tn.tokens[j].Score
	})

	if len(e.tn.tokens) == 0 {
		return
	}
	maxScore := e.tn.tokens[0].Score

	keep := len(e.tn.tokens)
	if e.p.BeamWidth > 0 && keep > e.p.BeamWidth {
		keep = e.p.BeamWidth
	}
	if e.p.EnvelopeWidth > 0 {
		cutoff := maxScore - e.p.EnvelopeWidth
		for i := 0; i < keep; i++ {
			if e.tn.tokens[i].Score < cutoff {
				keep = i
				break
			}
		}
	}
	e.tn.tokens = e.tn.tokens[:keep]

	for k := range e.tn.byNode {
		delete(e.tn.byNode, k)
	}
	for i, tok := range e.tn.tokens {
		e.tn.byNode[tok.Node] = i
	}
}

// Trellis returns the word trellis accumulated so far; call Finalize
// on it once the last frame has been fed.
func (e *Engine) Trellis() *trellis.Trellis { return e.tr }

// BestPath implements spec §4.6's finalize output for the isolated-word
// / DFA case: the best-scoring token on the last fed frame, walked back
// through the trellis to a word sequence (oldest first).
func (e *Engine) BestPath() ([]wchmm.WordID, float32) {
	if len(e.tl.tokens) == 0 {
		return nil, NegInf
	}
	best := e.tl.tokens[0]
	for _, tok := range e.tl.tokens[1:] {
		if tok.Score > best.Score {
			best = tok
		}
	}
	return e.backtrace(best), best.Score
}

func (e *Engine) backtrace(tok Token) []wchmm.WordID {
	var seq []wchmm.WordID
	ref := tok.BackTrellis
	if tok.LastContentWord != wchmm.InvalidWord {
		seq = append(seq, tok.LastContentWord)
	}
	for {
		w, ok := e.tr.Get(ref)
		if !ok {
			break
		}
		seq = append(seq, w.WordID)
		ref = w.Previous
	}
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
	return seq
}
