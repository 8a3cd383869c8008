// Package zcross implements the zero-cross / level detector used for
// speech/silence endpointing (spec component C1).
//
// It is a cycle buffer of the last Length samples: each Push evicts the
// oldest samples and admits the new ones, maintaining a running count of
// zero crossings held in the ring and reporting the peak absolute level of
// the samples that Push admitted. The original
// Julius sources call this "count_zc_e" (libsent/src/adin/zc-e.c); this
// package generalizes it with explicit reallocation instead of a
// reset-and-warn global.
package zcross

import "fmt"

// Sign is the polarity the detector is currently armed for.
type Sign int

const (
	SignPositive Sign = iota
	SignNegative
)

// BufferSizeChangedError is returned by Resize when the new length
// differs from the detector's current length.
type BufferSizeChangedError struct {
	Old, New int
}

func (e *BufferSizeChangedError) Error() string {
	return fmt.Sprintf("zcross: buffer length changed from %d to %d samples", e.Old, e.New)
}

// Detector holds the cycle buffer state. Not safe for concurrent use.
type Detector struct {
	data  []int16
	isZC  []bool
	top   int
	valid int // number of samples admitted so far, saturating at len(data)

	trigger int // level threshold T
	offset  int // DC offset added before comparison

	zeroCross int
	armed     bool
	sign      Sign
	level     int // peak |sample| seen in the most recent Push
}

// New allocates a detector with a cycle buffer of length samples.
func New(length int) *Detector {
	d := &Detector{}
	d.alloc(length)
	return d
}

func (d *Detector) alloc(length int) {
	d.data = make([]int16, length)
	d.isZC = make([]bool, length)
}

// Reset reinitializes trigger level, DC offset and buffer length. If
// length differs from the detector's current length it reallocates,
// discarding any buffered history — callers that did not expect this
// should call Resize explicitly and check the returned error instead.
func (d *Detector) Reset(trigger, length, offset int) {
	if len(d.data) != length {
		d.alloc(length)
	}
	d.trigger = trigger
	d.offset = offset
	d.zeroCross = 0
	d.armed = false
	d.sign = SignPositive
	d.top = 0
	d.valid = 0
	for i := range d.isZC {
		d.isZC[i] = false
	}
}

// Resize reallocates the cycle buffer to length samples, discarding
// buffered history, and reports a *BufferSizeChangedError so callers can
// log the reallocation as a diagnostic rather than have it pass silently.
func (d *Detector) Resize(length int) error {
	old := len(d.data)
	d.alloc(length)
	d.top, d.valid, d.zeroCross, d.armed = 0, 0, 0, false
	d.sign = SignPositive
	for i := range d.isZC {
		d.isZC[i] = false
	}
	if old != length {
		return &BufferSizeChangedError{Old: old, New: length}
	}
	return nil
}

// Length reports the configured cycle-buffer length.
func (d *Detector) Length() int { return len(d.data) }

// Trigger reports the configured level threshold T.
func (d *Detector) Trigger() int { return d.trigger }

// ValidLen reports how many of the cycle-buffer slots hold real samples;
// it saturates at Length() once the buffer has wrapped at least once.
func (d *Detector) ValidLen() int { return d.valid }

// Push admits step samples from buf (len(buf) must be >= step) into the
// cycle buffer, evicting the oldest step samples. It only reads buf; the
// evicted samples are recovered later via FlushBuffer, not returned here.
//
// It returns the zero-cross count currently held in the ring and the peak
// absolute sample level observed in this call, after DC-offset correction.
func (d *Detector) Push(buf []int16, step int) (zeroCross, level int) {
	if step > len(buf) {
		panic("zcross: step exceeds buffer length")
	}
	length := len(d.data)
	var peak int
	for i := 0; i < step; i++ {
		if d.isZC[d.top] {
			d.zeroCross--
		}
		d.isZC[d.top] = false

		s := int(buf[i]) + d.offset

		if d.armed {
			if d.sign == SignPositive && s < 0 {
				d.zeroCross++
				d.isZC[d.top] = true
				d.armed = false
				d.sign = SignNegative
			} else if d.sign == SignNegative && s > 0 {
				d.zeroCross++
				d.isZC[d.top] = true
				d.armed = false
				d.sign = SignPositive
			}
		}

		if abs(s) > d.trigger {
			d.armed = true
		}
		if abs(s) > peak {
			peak = abs(s)
		}

		d.data[d.top] = buf[i]
		d.top++
		if d.valid < d.top {
			d.valid = d.top
		}
		if d.top >= length {
			d.top = 0
		}
	}
	d.level = peak
	return d.zeroCross, d.level
}

// FlushBuffer copies the samples currently held in the cycle buffer, in
// capture order, into dst (which must have capacity >= ValidLen) and
// returns the number of samples written. This is how a caller recovers
// the head-margin prefix at trigger-up.
func (d *Detector) FlushBuffer(dst []int16) int {
	length := len(d.data)
	start := 0
	if d.valid >= length {
		start = d.top
	}
	n := d.valid
	t := start
	for i := 0; i < n; i++ {
		dst[i] = d.data[t]
		t++
		if t == length {
			t = 0
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
