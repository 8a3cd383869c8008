package search2

import "github.com/doismellburning/juliusgo/internal/wchmm"

// Acceptor decides whether a hypothesis's current word sequence is a
// complete sentence (spec §4.8's "Acceptance").
type Acceptor interface {
	Accept(h *Hypothesis) bool
}

// NgramAcceptor implements the N-gram acceptance rule: a hypothesis
// is complete once its oldest (leftmost) word is the head silence
// word and that word's best back frame is within the first few frames
// of the utterance.
type NgramAcceptor struct {
	HeadSilence  wchmm.WordID
	MaxBackFrame int // spec names 5 explicitly; kept configurable
}

func (a NgramAcceptor) Accept(h *Hypothesis) bool {
	if len(h.Words) == 0 {
		return false
	}
	return h.Words[0] == a.HeadSilence && h.BestBackFrame <= a.MaxBackFrame
}

// DFAAcceptor accepts whenever the grammar reports the hypothesis's
// word sequence as reaching a terminal state. Grammar compilation and
// traversal are external collaborators (spec §1's Non-goals).
type DFAAcceptor struct {
	IsTerminal func(seq []wchmm.WordID) bool
}

func (a DFAAcceptor) Accept(h *Hypothesis) bool {
	return a.IsTerminal(h.Words)
}
