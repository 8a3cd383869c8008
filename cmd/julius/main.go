// Command julius is the two-pass recognizer entry point: it wires
// package wchmm (lexicon build), internal/search1 (pass 1), internal/trellis,
// internal/search2 (pass 2), internal/graphout, and internal/spseg behind a
// jconf/pflag CLI surface, the same front-end shape as cmd/adintool's but
// driving the recognition search instead of the audio pipeline.
//
// Acoustic models, language models, and the dictionary/phone-set loader
// that would populate a wchmm.Build call are external collaborators (the
// Non-goals §1 names: AM/LM file formats, N-gram parsing, grammar/DFA
// compilation). This binary never hardcodes a format for any of them;
// instead it resolves a named ModelProvider from a small registry, the same
// shape internal/adriver uses for "-in plugin,NAME" sources. A caller wanting
// a working end-to-end binary imports a package that calls
// RegisterModelProvider in its own init().
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/juliusgo/internal/graphout"
	"github.com/doismellburning/juliusgo/internal/jconf"
	"github.com/doismellburning/juliusgo/internal/search1"
	"github.com/doismellburning/juliusgo/internal/search2"
	"github.com/doismellburning/juliusgo/internal/session"
	"github.com/doismellburning/juliusgo/internal/spseg"
	"github.com/doismellburning/juliusgo/internal/wchmm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type config struct {
	jconfPath  string
	amlm       string
	beamWidth  int
	envelope1  float32
	stackSize  int
	resultN    int
	maxHypo    int
	envelope2  float32
	wordEnv    int
	cmAlpha    float64
	cmCutThres float64
	fallback1  bool
	iwsp       bool
	grammar    bool
	graphOut   bool
	graphDepth int
	graphNeigh int
	spsegment  bool
}

func run(args []string) int {
	fs := pflag.NewFlagSet("julius", pflag.ContinueOnError)
	c := config{} //nolint:exhaustruct
	fs.StringVarP(&c.jconfPath, "jconf", "C", "", "jconf option file (line or .yaml format)")
	fs.StringVar(&c.amlm, "amlm", "", "registered ModelProvider name supplying AM/LM/dictionary")
	fs.IntVar(&c.beamWidth, "b", 1000, "pass-1 beam width")
	fs.Float32Var(&c.envelope1, "bs", 0, "pass-1 score envelope width (0 disables)")
	fs.IntVar(&c.stackSize, "b2", 400, "pass-2 stack capacity")
	fs.IntVar(&c.resultN, "n", 1, "pass-2 result count (N-best)")
	fs.IntVar(&c.maxHypo, "m", 2000, "pass-2 maxhypo pop budget")
	fs.Float32Var(&c.envelope2, "n2", 0, "pass-2 score envelope width (0 disables)")
	fs.IntVar(&c.wordEnv, "sb", 0, "pass-2 word-envelope pop cutoff (0 disables)")
	fs.Float64Var(&c.cmAlpha, "cmalpha", 0.05, "confidence posterior softmax scale")
	fs.Float64Var(&c.cmCutThres, "cmthres", 0, "confidence posterior cut threshold")
	fs.BoolVar(&c.fallback1, "fallback1pass", false, "fall back to the pass-1 1-best on pass-2 exhaustion")
	fs.BoolVar(&c.iwsp, "iwsp", false, "append an inter-word short-pause model to every word")
	fs.BoolVar(&c.grammar, "gram", false, "build per-category grammar-mode trees")
	fs.BoolVar(&c.graphOut, "graphout", false, "emit a word graph / confusion network alongside N-best")
	fs.IntVar(&c.graphDepth, "graphdepth", 0, "word-graph max concurrent arcs per frame (0 disables)")
	fs.IntVar(&c.graphNeigh, "graphneighbor", 2, "word-graph neighbor-merge window in frames")
	fs.BoolVar(&c.spsegment, "spsegment", false, "enable short-pause segmented re-entry across sentences")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	sess := session.New(log.InfoLevel)
	defer sess.Close()

	if c.jconfPath != "" {
		if err := applyJconf(fs, c.jconfPath); err != nil {
			sess.Log.Error("failed to load jconf", "path", c.jconfPath, "err", err)
			return 1
		}
		if err := fs.Parse(args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	code, err := runWithConfig(sess, c)
	if err != nil {
		sess.Log.Error("julius failed", "err", err)
	}
	return code
}

// applyJconf loads path (line-format via jconf.ParseFile, or structured
// via jconf.ParseYAMLFile for a .yaml/.yml suffix per SPEC_FULL.md §B) and
// re-dispatches every recovered SR- or GLOBAL-section option through fs, so a
// jconf file and command-line flags share one FlagSet and one precedence
// order (flags given on the command line still win, since run re-parses
// them after applyJconf returns).
func applyJconf(fs *pflag.FlagSet, path string) error {
	var opts []jconf.Option
	var err error
	if isYAMLPath(path) {
		opts, err = jconf.ParseYAMLFile(path)
	} else {
		opts, err = jconf.ParseFile(path)
	}
	if err != nil {
		return err
	}
	for _, o := range opts {
		if o.Section != jconf.SectionSR && o.Section != jconf.SectionGlobal {
			continue // AM/LM-section options are for the registered ModelProvider, not this FlagSet
		}
		name := strings.TrimLeft(o.Flag, "-")
		if f := fs.Lookup(name); f != nil && len(o.Args) > 0 {
			if err := f.Value.Set(o.Args[0]); err != nil {
				return fmt.Errorf("jconf: %s:%d: -%s: %w", o.Source, o.Line, name, err)
			}
		}
	}
	return nil
}

func isYAMLPath(path string) bool {
	return len(path) > 5 && (path[len(path)-5:] == ".yaml" || path[len(path)-4:] == ".yml")
}

func runWithConfig(sess *session.Session, c config) (int, error) {
	provider, ok := lookupModelProvider(c.amlm)
	if !ok {
		return 1, fmt.Errorf("julius: no ModelProvider registered as %q (use -amlm, register one via RegisterModelProvider)", c.amlm)
	}

	tree, err := wchmm.Build(provider.Words(), provider.Phones(), wchmm.BuildOptions{
		InterWordShortPause: c.iwsp,
		ShortPausePhone:     provider.ShortPausePhone(),
		GrammarMode:         c.grammar,
		Factor:              wchmm.Factor1Gram,
		Strict:              false,
		Log:                 sess.Log,
	})
	if err != nil {
		return 1, fmt.Errorf("julius: lexicon build: %w", err)
	}

	recognize := func(samples []int16, context wchmm.WordID) (spseg.SentenceResult, error) {
		return recognizeSentence(tree, provider, c, samples, context)
	}

	if !c.spsegment {
		result, err := recognize(provider.NextSegment(), wchmm.InvalidWord)
		if err != nil {
			return 1, err
		}
		printResult(result, provider)
		return 0, nil
	}

	ctl := spseg.New(recognize)
	for {
		seg := provider.NextSegment()
		if seg == nil {
			break
		}
		result, err := ctl.Feed(seg)
		if err != nil {
			return 1, err
		}
		printResult(result, provider)
	}
	return 0, nil
}

// recognizeSentence drives one utterance through pass 1, pass 2, and
// (optionally) word-graph generation, seeded with context as the carried
// N-gram history from a prior short-pause segment.
func recognizeSentence(tree *wchmm.Tree, provider ModelProvider, c config, samples []int16, context wchmm.WordID) (spseg.SentenceResult, error) {
	am := provider.AcousticModel(samples)
	lm := provider.LanguageModel(context)

	e1 := search1.New(tree, am, lm, search1.Params{BeamWidth: c.beamWidth, EnvelopeWidth: c.envelope1})
	e1.Init()
	begins := e1.NewWordBeginTracker()
	frameCount := provider.FrameCount(samples)
	for t := 0; t < frameCount; t++ {
		e1.FeedFrame(t, begins)
	}

	tr := e1.Trellis()
	if tr.Len() == 0 {
		return spseg.SentenceResult{}, nil
	}
	tr.Finalize()

	words := provider.NextWordSource(tr)
	rescore := provider.Rescorer(am)
	accept := provider.Acceptor()

	e2 := search2.New(tr, words, rescore, accept, search2.Params{
		StackSize:               c.stackSize,
		ResultCount:             c.resultN,
		MaxHypo:                 c.maxHypo,
		EnvelopeWidth:           c.envelope2,
		EnvelopedBestFirstWidth: c.wordEnv,
		Alpha:                   c.cmAlpha,
		ConfidenceCutThreshold:  c.cmCutThres,
		FallbackPass1:           c.fallback1,
	}, nil)
	e2.Seed(frameCount - 1)
	hyps := e2.Run()

	if len(hyps) == 0 {
		if c.fallback1 {
			bestWords, score := e1.BestPath()
			return spseg.SentenceResult{Words: bestWords, Score: score, FinalFrame: frameCount - 1}, nil
		}
		return spseg.SentenceResult{}, nil
	}

	best := hyps[0]
	if c.graphOut {
		g := buildWordGraph(hyps)
		g.PostProcess(0, frameCount-1, c.graphDepth, c.graphNeigh)
		provider.OnWordGraph(g)
	}

	return spseg.SentenceResult{Words: best.Words, Score: best.Score, FinalFrame: frameCount - 1}, nil
}

// buildWordGraph replays every surviving hypothesis's word chain as arcs,
// relying on Graph.Add's dynamic merge (spec's "graphout search"
// optimization) to collapse duplicates across hypotheses as they're added.
func buildWordGraph(hyps []*search2.Hypothesis) *graphout.Graph {
	g := graphout.New()
	for _, h := range hyps {
		rightFrame := h.BestBackFrame
		for i := len(h.Words) - 1; i >= 0; i-- {
			leftFrame := rightFrame - 1
			g.Add(&graphout.Arc{ //nolint:exhaustruct
				WordID:        h.Words[i],
				LeftFrame:     leftFrame,
				RightFrame:    rightFrame,
				LanguageScore: h.LMTotal,
				GHead:         h.Score,
			})
			rightFrame = leftFrame
		}
	}
	return g
}

func printResult(result spseg.SentenceResult, provider ModelProvider) {
	if len(result.Words) == 0 {
		return
	}
	fmt.Println(provider.Render(result.Words))
}
