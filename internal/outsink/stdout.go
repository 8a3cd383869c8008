package outsink

import (
	"bufio"
	"encoding/binary"
	"io"
)

// StdoutSink writes raw 16-bit little-endian PCM to an io.Writer
// (normally os.Stdout), matching the "-out stdout" destination, which
// spec §4.4 notes is "always raw" regardless of -raw.
type StdoutSink struct {
	w *bufio.Writer
}

func NewStdoutSink(w io.Writer) *StdoutSink {
	return &StdoutSink{w: bufio.NewWriter(w)}
}

func (s *StdoutSink) Write(samples []int16) error {
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	_, err := s.w.Write(buf)
	return err
}

func (s *StdoutSink) EndSegment() error { return s.w.Flush() }
func (s *StdoutSink) EndSession() error { return s.w.Flush() }
