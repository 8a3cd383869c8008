// Package trellis implements the per-frame word-end store (component
// C7): pass 1 appends a Word record every time a word's end node
// survives the beam, and pass 2 queries it by (frame, word) in
// O(log n) after a one-time bucket-and-sort at Finalize.
//
// Grounded on the reference's TRELLIS_ATOM bookkeeping in beam.c
// (put_atom, find_1pass_result) and search_bestfirst_main.c's use of
// the trellis as pass 2's admissible heuristic; back pointers are kept
// as arena indices rather than raw pointers per the design notes on
// trellis back pointers (spec §9).
package trellis

import (
	"sort"

	"github.com/doismellburning/juliusgo/internal/wchmm"
)

// Ref indexes a Word within a Trellis's arena. BOS is the sentinel
// "beginning of sentence" predecessor every word eventually traces
// back to.
type Ref int32

const BOS Ref = -1

// Word is one trellis word (spec §3's "Trellis word"): a word whose end
// node survived the beam on some frame, with its Viterbi back-score and
// a link to whichever word preceded it on the best path into its begin
// frame.
type Word struct {
	WordID      wchmm.WordID
	BeginFrame  int
	EndFrame    int
	BackScore   float32
	Previous    Ref
	LastLMScore float32
}

// Trellis accumulates Words during pass 1 and answers point queries
// during pass 2.
type Trellis struct {
	words     []Word
	byFrame   map[int][]Ref // only valid after Finalize; nil before
	finalized bool
}

// New returns an empty Trellis ready to receive Append calls.
func New() *Trellis {
	return &Trellis{}
}

// Append records a newly-survived word end, returning its Ref. prev
// must be BOS or a Ref returned by an earlier Append with a strictly
// smaller EndFrame (P4's monotonicity invariant). Neither Append nor
// Finalize validates this: Finalize buckets every word by EndFrame
// without following Previous, so a bad prev surfaces only in code that
// backtraces through it.
func (t *Trellis) Append(wordID wchmm.WordID, begin, end int, backScore float32, prev Ref, lmScore float32) Ref {
	ref := Ref(len(t.words))
	t.words = append(t.words, Word{
		WordID:      wordID,
		BeginFrame:  begin,
		EndFrame:    end,
		BackScore:   backScore,
		Previous:    prev,
		LastLMScore: lmScore,
	})
	t.finalized = false
	return ref
}

// Get dereferences a Ref. BOS and out-of-range refs report ok=false.
func (t *Trellis) Get(r Ref) (Word, bool) {
	if r == BOS || r < 0 || int(r) >= len(t.words) {
		return Word{}, false
	}
	return t.words[r], true
}

// Len reports how many words have been appended.
func (t *Trellis) Len() int { return len(t.words) }

// Finalize buckets words by end frame and sorts each bucket by word id,
// enabling BinarySearch (spec §4.7's relocate_by_frame/sort_by_word_id
// pair).
func (t *Trellis) Finalize() {
	t.byFrame = make(map[int][]Ref, len(t.words))
	for i := range t.words {
		r := Ref(i)
		t.byFrame[t.words[i].EndFrame] = append(t.byFrame[t.words[i].EndFrame], r)
	}
	for frame := range t.byFrame {
		bucket := t.byFrame[frame]
		sort.Slice(bucket, func(i, j int) bool {
			return t.words[bucket[i]].WordID < t.words[bucket[j]].WordID
		})
		t.byFrame[frame] = bucket
	}
	t.finalized = true
}

// BinarySearch finds the word ending at frame with the given word id,
// in O(log n) within that frame's bucket. Finalize must have been
// called first; BinarySearch panics otherwise, since calling it on an
// unfinalized trellis is always a caller bug (spec §4.7).
func (t *Trellis) BinarySearch(frame int, wordID wchmm.WordID) (Ref, bool) {
	if !t.finalized {
		panic("trellis: BinarySearch called before Finalize")
	}
	bucket := t.byFrame[frame]
	i := sort.Search(len(bucket), func(i int) bool {
		return t.words[bucket[i]].WordID >= wordID
	})
	if i < len(bucket) && t.words[bucket[i]].WordID == wordID {
		return bucket[i], true
	}
	return 0, false
}

// AtFrame returns every trellis word ending at frame, in word-id order
// (valid after Finalize).
func (t *Trellis) AtFrame(frame int) []Word {
	bucket := t.byFrame[frame]
	out := make([]Word, len(bucket))
	for i, r := range bucket {
		out[i] = t.words[r]
	}
	return out
}
