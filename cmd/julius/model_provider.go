package main

import (
	"github.com/doismellburning/juliusgo/internal/graphout"
	"github.com/doismellburning/juliusgo/internal/search1"
	"github.com/doismellburning/juliusgo/internal/search2"
	"github.com/doismellburning/juliusgo/internal/trellis"
	"github.com/doismellburning/juliusgo/internal/wchmm"
)

// ModelProvider supplies everything this binary treats as an external
// collaborator: the dictionary/phone set a lexicon tree is built from,
// the acoustic and language models pass 1 and pass 2 consult, the audio
// segments to recognize, and where to send a finished result. None of
// this is specified by name (spec §1's Non-goals list AM/LM file
// loading, N-gram parsing, and grammar/DFA compilation as out of
// scope); a real deployment registers one concrete implementation of
// this interface from its own package.
type ModelProvider interface {
	Words() []wchmm.Word
	Phones() []wchmm.Phone
	ShortPausePhone() wchmm.PhoneID

	// NextSegment returns the next utterance's samples to recognize, or
	// nil once the input is exhausted.
	NextSegment() []int16
	FrameCount(samples []int16) int

	AcousticModel(samples []int16) search1.AcousticModel
	LanguageModel(context wchmm.WordID) search1.LanguageModel
	NextWordSource(tr *trellis.Trellis) search2.NextWordSource
	Rescorer(am search1.AcousticModel) search2.Rescorer
	Acceptor() search2.Acceptor

	OnWordGraph(g *graphout.Graph)
	Render(words []wchmm.WordID) string
}

var modelProviderRegistry = map[string]ModelProvider{}

// RegisterModelProvider makes p available under name for -amlm to
// resolve at startup; intended to be called from an init() in a package
// that wires up a concrete AM/LM/dictionary, the same registration shape
// internal/adriver.RegisterPlugin uses for "-in plugin,NAME" sources.
func RegisterModelProvider(name string, p ModelProvider) {
	modelProviderRegistry[name] = p
}

func lookupModelProvider(name string) (ModelProvider, bool) {
	p, ok := modelProviderRegistry[name]
	return p, ok
}
