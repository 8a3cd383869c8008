package search2

import (
	"math"
	"sort"

	"github.com/doismellburning/juliusgo/internal/trellis"
	"github.com/doismellburning/juliusgo/internal/wchmm"
)

// NegInf is a "log zero" floor score. The engine itself does not use it:
// a candidate with no heuristic available gets a heuristic of 0, and
// candidates pruned before they are pushed are simply skipped.
const NegInf = float32(-1e30)

// Params configures one Engine run. Zero values for widths/thresholds
// disable that particular pruning stage.
type Params struct {
	StackSize               int
	ResultCount             int     // N: result stack target size
	MaxHypo                 int     // maxhypo: total pop budget
	EnvelopeWidth           float32 // score-envelope width
	EnvelopedBestFirstWidth int     // word-envelope pop-count cutoff per length
	Alpha                   float64 // confidence softmax scale
	ConfidenceCutThreshold  float64 // cm_cut_thres
	FallbackPass1           bool
}

// Engine runs the pop/expand loop described in spec §4.8 over a
// fixed pass-1 trellis.
type Engine struct {
	trellis *trellis.Trellis
	words   NextWordSource
	rescore Rescorer
	accept  Acceptor
	p       Params

	stack     *Stack
	result    []*Hypothesis
	pops      int
	frameMax  map[int]float32
	lenPops   map[int]int
	enveloped map[int]bool
	terminate func() bool
}

// New builds an Engine. terminate is polled at the top of every loop
// iteration (spec §5's "external terminate flag" suspension point);
// nil disables external cancellation.
func New(tr *trellis.Trellis, words NextWordSource, rescore Rescorer, accept Acceptor, p Params, terminate func() bool) *Engine {
	return &Engine{
		trellis:   tr,
		words:     words,
		rescore:   rescore,
		accept:    accept,
		p:         p,
		stack:     NewStack(p.StackSize),
		frameMax:  make(map[int]float32),
		lenPops:   make(map[int]int),
		enveloped: make(map[int]bool),
		terminate: terminate,
	}
}

// Seed pushes one initial single-word hypothesis per trellis word
// ending at the utterance's last frame — pass 2's starting points,
// one per pass-1 survivor that reached the very end of the utterance.
func (e *Engine) Seed(lastFrame int) {
	for _, w := range e.trellis.AtFrame(lastFrame) {
		h := &Hypothesis{
			Words:         []wchmm.WordID{w.WordID},
			G:             map[int]float32{w.EndFrame: w.BackScore},
			BestBackFrame: w.EndFrame,
			Score:         w.BackScore,
			Confidence:    []float32{1},
		}
		e.stack.Push(h)
	}
}

// Run drives the pop/expand loop to one of spec §4.8's termination
// conditions: the result stack reaches N, the global stack empties,
// maxhypo pops are spent, or terminate reports true. It returns the
// result stack, best score first.
func (e *Engine) Run() []*Hypothesis {
	for {
		if e.terminate != nil && e.terminate() {
			break
		}
		if e.p.ResultCount > 0 && len(e.result) >= e.p.ResultCount {
			break
		}
		if e.p.MaxHypo > 0 && e.pops >= e.p.MaxHypo {
			break
		}

		h, ok := e.stack.PopBest()
		if !ok {
			break
		}
		e.pops++

		if h.EndFlag {
			e.result = append(e.result, h)
			continue
		}

		length := len(h.Words)
		if e.enveloped[length] {
			continue
		}
		e.lenPops[length]++
		if e.p.EnvelopedBestFirstWidth > 0 && e.lenPops[length] >= e.p.EnvelopedBestFirstWidth {
			e.enveloped[length] = true
		}

		if e.accept.Accept(h) {
			done := h.clone()
			done.EndFlag = true
			e.stack.Push(done)
			continue
		}

		e.expand(h)
	}

	sort.Slice(e.result, func(i, j int) bool { return e.result[i].Score > e.result[j].Score })
	return e.result
}

// expand implements spec §4.8's expansion step: enumerate candidates,
// rescore each forward, assemble its score, prune, and push survivors.
func (e *Engine) expand(h *Hypothesis) {
	cands := e.words.Candidates(h.Words, h.BestBackFrame)
	if len(cands) == 0 {
		return
	}

	fresh := make([]*Hypothesis, 0, len(cands))
	for _, c := range cands {
		g, bestFrame := e.rescore.ForwardScore(c.Word, h.BestBackFrame)
		gBest := g[bestFrame]

		var heuristic float32
		if ref, ok := e.trellis.BinarySearch(bestFrame, c.Word); ok {
			w, _ := e.trellis.Get(ref)
			heuristic = w.BackScore
		}
		score := gBest + heuristic + c.LMScore

		if max, ok := e.frameMax[bestFrame]; ok && e.p.EnvelopeWidth > 0 && score < max-e.p.EnvelopeWidth {
			continue
		}

		nh := h.clone()
		nh.Words = append([]wchmm.WordID{c.Word}, nh.Words...)
		nh.G = g
		nh.BestBackFrame = bestFrame
		nh.Score = score
		nh.LMTotal += c.LMScore
		nh.Confidence = append([]float32{0}, nh.Confidence...)

		fresh = append(fresh, nh)
	}

	fresh = e.applyConfidencePruning(fresh)

	for _, nh := range fresh {
		if cur, ok := e.frameMax[nh.BestBackFrame]; !ok || nh.Score > cur {
			e.frameMax[nh.BestBackFrame] = nh.Score
		}
		e.stack.Push(nh)
	}
}

// applyConfidencePruning implements spec §4.8 step 4's local
// confidence posterior: p_i = 10^(alpha*s_i) / sum_j 10^(alpha*s_j),
// dropping candidates below cm_cut_thres and recording survivors'
// posterior as the confidence of the word they just added (spec P6).
func (e *Engine) applyConfidencePruning(fresh []*Hypothesis) []*Hypothesis {
	if len(fresh) == 0 {
		return fresh
	}
	alpha := e.p.Alpha
	if alpha == 0 {
		alpha = 1
	}

	maxScore := fresh[0].Score
	for _, h := range fresh[1:] {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	weights := make([]float64, len(fresh))
	var sum float64
	for i, h := range fresh {
		// Subtract maxScore before exponentiating for numerical
		// stability; this cancels in the ratio, leaving p_i unchanged.
		w := math.Pow(10, alpha*float64(h.Score-maxScore))
		weights[i] = w
		sum += w
	}

	survivors := fresh[:0]
	for i, h := range fresh {
		p := weights[i] / sum
		if p < e.p.ConfidenceCutThreshold {
			continue
		}
		h.Confidence[0] = float32(p)
		survivors = append(survivors, h)
	}
	return survivors
}
