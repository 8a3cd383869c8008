package wchmm

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"
)

// BuildOptions configures Build's behavior beyond the word/phone lists
// themselves.
type BuildOptions struct {
	// InterWordShortPause, when true, appends a short-pause model (spec
	// §4.5 step 5, "-iwsp") to the tail of every word.
	InterWordShortPause bool
	ShortPausePhone     PhoneID

	// GrammarMode switches on per-category trees (step 4, I6): words of
	// different categories never share a branch node, even with an
	// identical phone prefix.
	GrammarMode bool

	Factor FactorMode

	// Strict makes a missing context-dependent output set (failure mode
	// in spec §4.5) a fatal ErrMissingCDSet instead of falling back to
	// the phone's DefaultOut with a warning.
	Strict bool

	Log *log.Logger
}

// wordSeqCompare orders two words first by category, then lexicographically
// by phone sequence (spec §4.5 step 1).
func wordSeqCompare(a, b Word, grammarMode bool) int {
	if grammarMode && a.Category != b.Category {
		if a.Category < b.Category {
			return -1
		}
		return 1
	}
	for i := 0; i < len(a.Phones) && i < len(b.Phones); i++ {
		if a.Phones[i] != b.Phones[i] {
			if a.Phones[i] < b.Phones[i] {
				return -1
			}
			return 1
		}
	}
	return len(a.Phones) - len(b.Phones)
}

// longestCommonPrefix returns how many leading phones a and b share.
func longestCommonPrefix(a, b []PhoneID) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// builder holds the in-progress node array during construction; callers
// never see raw node addresses (spec's design note on pointer graphs
// with reallocation) — only the final Tree.Nodes slice.
type builder struct {
	phones  []Phone
	opts    BuildOptions
	nodes   []Node
	wordEnd map[WordID]int
	starts  []int
	headOf  map[WordID]int
	unigram map[WordID]float32
}

// effectivePhones returns w's phone sequence with the short-pause tail
// appended when configured.
func effectivePhones(w Word, opts BuildOptions) []PhoneID {
	if !opts.InterWordShortPause {
		return w.Phones
	}
	out := make([]PhoneID, len(w.Phones)+1)
	copy(out, w.Phones)
	out[len(w.Phones)] = opts.ShortPausePhone
	return out
}

// Build assembles the tree lexicon from words and phones, following the
// eight steps of spec §4.5. It rejects (with an error, not a panic) any
// dictionary containing a whole-word skip path, since the search this
// tree feeds cannot admit a zero-emitting word (step 8).
func Build(words []Word, phones []Phone, opts BuildOptions) (*Tree, error) {
	if opts.Log == nil {
		opts.Log = log.New(io.Discard)
	}

	for _, w := range words {
		if len(w.Phones) == 0 {
			return nil, fmt.Errorf("wchmm: word %d has an empty phone sequence", w.ID)
		}
	}
	for _, p := range phones {
		if p.IsPseudo && len(p.SelfLoop) == 0 {
			// A whole-word skip path means a pseudo phone contributes
			// zero emitting states end to end; reject per step 8.
			return nil, fmt.Errorf("wchmm: phone %q is a zero-emitting skip phone; word-skipping dictionaries are rejected", p.Name)
		}
	}

	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return wordSeqCompare(sorted[i], sorted[j], opts.GrammarMode) < 0
	})

	b := &builder{
		phones:  phones,
		opts:    opts,
		wordEnd: make(map[WordID]int),
		headOf:  make(map[WordID]int),
		unigram: make(map[WordID]float32, len(words)),
	}
	for _, w := range words {
		b.unigram[w.ID] = w.UnigramPenalty
	}

	var prevPhones []PhoneID
	var prevNodes []int // node index reached after each phone of the previous word
	var prevCategory CategoryID
	havePrev := false

	for _, w := range sorted {
		seq := effectivePhones(w, opts)
		matchLen := 0
		// I6: category-tree mode implies no cross-category branch
		// sharing, so a category change forces a fresh chain even if
		// the phone sequences happen to share a prefix.
		if havePrev && (!opts.GrammarMode || prevCategory == w.Category) {
			matchLen = longestCommonPrefix(prevPhones, seq)
			if matchLen > len(prevNodes) {
				matchLen = len(prevNodes)
			}
		}

		nodesForWord := make([]int, len(seq))
		copy(nodesForWord, prevNodes[:matchLen])

		parent := -1
		if matchLen > 0 {
			parent = nodesForWord[matchLen-1]
		}

		for i := matchLen; i < len(seq); i++ {
			phoneID := seq[i]
			phone := b.phoneByID(phoneID)
			if phone == nil {
				return nil, fmt.Errorf("wchmm: word %d references unknown phone id %d", w.ID, phoneID)
			}

			out, err := b.resolveOutput(*phone, seq, i, w.Category)
			if err != nil {
				return nil, err
			}

			node := Node{
				Out:      out,
				SelfLoop: firstOr(phone.SelfLoop, 0),
				NextProb: firstOr(phone.Next, 0),
				Stend:    InvalidWord,
				Category: w.Category,
			}
			if len(phone.Skip) > 0 {
				node.Overflow = append([]SkipArc(nil), phone.Skip[0]...)
			}

			idx := len(b.nodes)
			b.nodes = append(b.nodes, node)

			if parent == -1 {
				b.starts = append(b.starts, idx)
			} else {
				b.nodes[parent].Children = append(b.nodes[parent].Children, idx)
			}
			parent = idx
			nodesForWord[i] = idx
		}

		if len(seq) == 0 {
			continue
		}
		endNode := nodesForWord[len(seq)-1]
		b.headOf[w.ID] = nodesForWord[0]

		if existing, ok := b.wordEndOwner(endNode); ok && existing != w.ID {
			leafParent := -1
			if len(seq) >= 2 {
				leafParent = nodesForWord[len(seq)-2]
			}
			endNode = b.duplicateLeaf(endNode, leafParent)
			nodesForWord[len(seq)-1] = endNode
		}
		b.nodes[endNode].Stend = w.ID
		b.wordEnd[w.ID] = endNode

		prevPhones = seq
		prevNodes = nodesForWord
		prevCategory = w.Category
		havePrev = true
	}

	b.finalizeSuccessors()

	return &Tree{
		Nodes:      b.nodes,
		StartNodes: dedupInts(b.starts),
		WordEnd:    b.wordEnd,
		Factor:     opts.Factor,
		wordHead:   b.headOf,
	}, nil
}

func (b *builder) phoneByID(id PhoneID) *Phone {
	if int(id) < 0 || int(id) >= len(b.phones) {
		return nil
	}
	return &b.phones[id]
}

// resolveOutput implements spec §4.5 step 4: the last phone of a word
// binds to the left-context cdset keyed by the left neighbor, the first
// phone binds to the right-context cdset keyed by the right neighbor,
// interior phones use DefaultOut.
func (b *builder) resolveOutput(phone Phone, seq []PhoneID, pos int, cat CategoryID) (OutputSet, error) {
	isFirst := pos == 0
	isLast := pos == len(seq)-1

	switch {
	case isLast && !isFirst:
		neighborName := b.phoneByID(seq[pos-1]).Name
		if out, ok := phone.LeftCD[neighborName]; ok {
			return out, nil
		}
		return b.fallback(phone, neighborName, cat)
	case isFirst && !isLast:
		neighborName := b.phoneByID(seq[pos+1]).Name
		if out, ok := phone.RightCD[neighborName]; ok {
			return out, nil
		}
		return b.fallback(phone, neighborName, cat)
	default:
		return phone.DefaultOut, nil
	}
}

func (b *builder) fallback(phone Phone, neighbor string, cat CategoryID) (OutputSet, error) {
	if b.opts.Strict {
		return 0, &ErrMissingCDSet{Phone: phone.Name, Neighbor: neighbor, Category: cat}
	}
	b.opts.Log.Warn("missing context-dependent output set, falling back to category-agnostic set",
		"phone", phone.Name, "neighbor", neighbor, "category", cat)
	return phone.DefaultOut, nil
}

// wordEndOwner reports whether node is already some other word's stend.
func (b *builder) wordEndOwner(node int) (WordID, bool) {
	if b.nodes[node].Stend == InvalidWord {
		return InvalidWord, false
	}
	return b.nodes[node].Stend, true
}

// duplicateLeaf implements spec §4.5 step 6: when two words would share
// an end node (homophones, or one word embedded as a prefix of
// another), the leaf is duplicated so every word keeps a unique stend.
// parent is the duplicated word's second-to-last node (nodesForWord's
// penultimate entry), or -1 when the word is a single phone, in which
// case the new leaf has no tree parent and is wired into the start set
// instead — either way the duplicate needs its own incoming arc, since
// it is otherwise unreachable from anywhere in the tree.
func (b *builder) duplicateLeaf(node, parent int) int {
	dup := b.nodes[node]
	dup.Stend = InvalidWord
	dup.Children = nil
	idx := len(b.nodes)
	b.nodes = append(b.nodes, dup)
	if parent == -1 {
		b.starts = append(b.starts, idx)
	} else {
		b.nodes[parent].Children = append(b.nodes[parent].Children, idx)
	}
	return idx
}

// finalizeSuccessors computes the 1-gram factoring value on every
// branching node when configured (spec §4.5 step 7): the max, over
// every word reachable through the branch, of that word's unigram log
// probability. Node indices are assigned parent-before-child during
// Build (I3's append-only array), so a single reverse pass lets each
// node fold in its already-computed children without recursion.
func (b *builder) finalizeSuccessors() {
	maxReachable := make([]float32, len(b.nodes))
	haveAny := make([]bool, len(b.nodes))

	for i := len(b.nodes) - 1; i >= 0; i-- {
		n := &b.nodes[i]
		var best float32
		found := false
		if n.Stend != InvalidWord {
			if p, ok := b.unigram[n.Stend]; ok {
				best, found = p, true
			}
		}
		for _, c := range n.Children {
			if !haveAny[c] {
				continue
			}
			if !found || maxReachable[c] > best {
				best = maxReachable[c]
				found = true
			}
		}
		maxReachable[i] = best
		haveAny[i] = found

		if b.opts.Factor == Factor1Gram && len(n.Children) >= 2 {
			n.Factoring = best
		}
	}
}

func firstOr(xs []float32, def float32) float32 {
	if len(xs) == 0 {
		return def
	}
	return xs[0]
}

func dedupInts(xs []int) []int {
	seen := make(map[int]bool, len(xs))
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
