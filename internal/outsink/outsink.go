// Package outsink implements the sink half of the output multiplexer
// (spec component C4): file (raw or WAV, with continuous-mode per-
// session file naming), stdout, and thin wrappers around
// internal/transport's adinnet/vecnet network sinks, all behind one
// Sink interface the segmenter's callbacks can target uniformly.
package outsink

// Sink is the uniform contract a segmented chunk stream is written to.
// Write may be called many times before each EndSegment; EndSession
// is called once, at process shutdown.
type Sink interface {
	Write(samples []int16) error
	EndSegment() error
	EndSession() error
}

// multiSink fans out to every wrapped Sink, continuing past a failing
// one exactly as AdinNetSink's per-peer fan-out does, so one broken
// output (e.g. a closed file) does not stop delivery to the others.
type multiSink struct {
	sinks []Sink
	errs  []error
}

// NewMultiSink combines sinks into one Sink.
func NewMultiSink(sinks ...Sink) Sink {
	return &multiSink{sinks: sinks}
}

func (m *multiSink) Write(samples []int16) error {
	m.errs = m.errs[:0]
	for _, s := range m.sinks {
		if err := s.Write(samples); err != nil {
			m.errs = append(m.errs, err)
		}
	}
	return m.firstErr()
}

func (m *multiSink) EndSegment() error {
	m.errs = m.errs[:0]
	for _, s := range m.sinks {
		if err := s.EndSegment(); err != nil {
			m.errs = append(m.errs, err)
		}
	}
	return m.firstErr()
}

func (m *multiSink) EndSession() error {
	m.errs = m.errs[:0]
	for _, s := range m.sinks {
		if err := s.EndSession(); err != nil {
			m.errs = append(m.errs, err)
		}
	}
	return m.firstErr()
}

func (m *multiSink) firstErr() error {
	if len(m.errs) == 0 {
		return nil
	}
	return m.errs[0]
}
