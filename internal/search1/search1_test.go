package search1

import (
	"testing"

	"github.com/doismellburning/juliusgo/internal/wchmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatAM returns 0 for every output/frame, isolating the beam math from
// acoustic scoring in these tests.
type flatAM struct{}

func (flatAM) OutputLogProb(wchmm.OutputSet, int) float32 { return 0 }

// openLM allows every transition at 0 cost.
type openLM struct{}

func (openLM) CrossWordScore(wchmm.WordID, int) float32 { return 0 }

// oneWordTree builds a two-node tree for a single word "a": node 0 is
// the head with a self loop and a branch into node 1, node 1 is the
// word's tail and carries its Stend.
func oneWordTree(word wchmm.WordID) *wchmm.Tree {
	return &wchmm.Tree{
		Nodes: []wchmm.Node{
			{SelfLoop: -0.1, NextProb: -0.2, Children: []int{1}, Stend: wchmm.InvalidWord},
			{SelfLoop: -0.1, NextProb: 0, Stend: word},
		},
		StartNodes: []int{0},
	}
}

func TestFeedFrameEmitsTrellisWordOnCrossWordTransition(t *testing.T) {
	word := wchmm.WordID(1)
	tree := oneWordTree(word)
	e := New(tree, flatAM{}, openLM{}, Params{BeamWidth: 8})
	e.Init()

	begins := e.NewWordBeginTracker()
	e.FeedFrame(1, begins)
	e.FeedFrame(2, begins)
	e.Trellis().Finalize()

	words := e.Trellis().AtFrame(1)
	require.Len(t, words, 1)
	assert.Equal(t, word, words[0].WordID)
	assert.Equal(t, 0, words[0].BeginFrame)
	assert.Equal(t, 1, words[0].EndFrame)
}

func TestPutKeepsHigherScoringTokenOnCollision(t *testing.T) {
	g := newGeneration(4)
	g.put(Token{Node: 0, Score: -5})
	g.put(Token{Node: 0, Score: -1})
	tok, ok := g.find(0)
	require.True(t, ok)
	assert.Equal(t, float32(-1), tok.Score)

	g.put(Token{Node: 0, Score: -9})
	tok, _ = g.find(0)
	assert.Equal(t, float32(-1), tok.Score, "lower-scoring collision must not overwrite")
}

func TestBeamWidthPrunesToTopB(t *testing.T) {
	word := wchmm.WordID(1)
	tree := &wchmm.Tree{
		Nodes: []wchmm.Node{
			{SelfLoop: -1, Stend: wchmm.InvalidWord},
			{SelfLoop: -2, Stend: wchmm.InvalidWord},
			{SelfLoop: -3, Stend: word},
		},
		StartNodes: []int{0, 1, 2},
	}
	e := New(tree, flatAM{}, openLM{}, Params{BeamWidth: 2})
	e.Init()
	begins := e.NewWordBeginTracker()
	e.FeedFrame(1, begins)

	assert.LessOrEqual(t, len(e.tl.tokens), 2)
}

func TestEnvelopePrunesBelowCutoff(t *testing.T) {
	tree := &wchmm.Tree{
		Nodes: []wchmm.Node{
			{SelfLoop: 0, Stend: wchmm.InvalidWord},
			{SelfLoop: -100, Stend: wchmm.InvalidWord},
		},
		StartNodes: []int{0, 1},
	}
	e := New(tree, flatAM{}, openLM{}, Params{BeamWidth: 8, EnvelopeWidth: 5})
	e.Init()
	begins := e.NewWordBeginTracker()
	e.FeedFrame(1, begins)

	for _, tok := range e.tl.tokens {
		assert.NotEqual(t, 1, tok.Node, "node reachable only via -100 path must fall outside the score envelope")
	}
}

func TestBestPathBacktracesThroughTrellis(t *testing.T) {
	word := wchmm.WordID(7)
	tree := oneWordTree(word)
	e := New(tree, flatAM{}, openLM{}, Params{BeamWidth: 8})
	e.Init()
	begins := e.NewWordBeginTracker()
	e.FeedFrame(1, begins)
	e.FeedFrame(2, begins)
	e.FeedFrame(3, begins)

	path, score := e.BestPath()
	assert.NotEmpty(t, path)
	assert.Greater(t, score, NegInf)
}

func TestDisallowedLMTransitionDropsToken(t *testing.T) {
	word := wchmm.WordID(1)
	tree := oneWordTree(word)
	wordEndTok := Token{Node: 1, Score: -2, LastContentWord: wchmm.InvalidWord}

	open := New(tree, flatAM{}, openLM{}, Params{})
	open.tn.reset()
	open.propagateCrossWord(wordEndTok, 0, 3)
	_, openOK := open.tn.find(0)
	assert.True(t, openOK, "an allowed LM transition must fan the completed word out to the head node")

	closed := New(tree, flatAM{}, closedLM{}, Params{})
	closed.tn.reset()
	closed.propagateCrossWord(wordEndTok, 0, 3)
	_, closedOK := closed.tn.find(0)
	assert.False(t, closedOK, "a disallowed (NegInf) LM transition must not create a token at the head node")
}

// closedLM refuses every transition.
type closedLM struct{}

func (closedLM) CrossWordScore(wchmm.WordID, int) float32 { return NegInf }
