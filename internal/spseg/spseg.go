// Package spseg implements the short-pause segmentation controller
// (component C10): long audio is split into sentence-sized segments
// at long silences, and the last word recognized in one segment is
// carried forward as language-model context for the next, so the
// boundary a long pause introduces does not also break cross-segment
// grammatical continuity.
//
// Grounded on the reference's short-pause segmentation re-entry in
// the main recognition loop (the part of search_bestfirst_main.c/
// realtime-1st-pass glue that restarts decoding with the previous
// segment's final content word as N-gram context) and on the
// segmenter's own long-silence boundary detection (internal/segment).
package spseg

import "github.com/doismellburning/juliusgo/internal/wchmm"

// SentenceResult is one segment's recognition outcome, as handed back
// by the caller-supplied Recognize function.
type SentenceResult struct {
	Words      []wchmm.WordID
	Score      float32
	FinalFrame int
}

// Recognize runs Core B end to end over one audio segment, seeded with
// the previous segment's trailing context (wchmm.InvalidWord at the
// very first segment of a session).
type Recognize func(segment []int16, context wchmm.WordID) (SentenceResult, error)

// Controller drives repeated segment-then-recognize cycles, threading
// the trailing word of each result into the next call.
type Controller struct {
	recognize Recognize
	context   wchmm.WordID
	results   []SentenceResult
}

// New returns a Controller with no carried context (the start of a
// session).
func New(recognize Recognize) *Controller {
	return &Controller{recognize: recognize, context: wchmm.InvalidWord}
}

// Context reports the word currently carried as context into the next
// segment.
func (c *Controller) Context() wchmm.WordID { return c.context }

// Feed recognizes one segment, updates the carried context from its
// trailing word (when the segment produced any words at all — a
// silence-only segment leaves the context unchanged per spec §4's
// "preserves last recognized word as context"), and records the
// result.
func (c *Controller) Feed(segment []int16) (SentenceResult, error) {
	result, err := c.recognize(segment, c.context)
	if err != nil {
		return SentenceResult{}, err
	}
	c.results = append(c.results, result)
	if len(result.Words) > 0 {
		c.context = result.Words[len(result.Words)-1]
	}
	return result, nil
}

// Results returns every sentence recognized so far, in segment order.
func (c *Controller) Results() []SentenceResult {
	out := make([]SentenceResult, len(c.results))
	copy(out, c.results)
	return out
}

// Reset clears carried context and accumulated results, starting a
// fresh session (e.g. after a long silence the caller treats as a
// hard session boundary rather than a sentence boundary).
func (c *Controller) Reset() {
	c.context = wchmm.InvalidWord
	c.results = nil
}
