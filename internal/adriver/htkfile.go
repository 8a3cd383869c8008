package adriver

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// HTKParamFile is a synchronous, non-threaded source that replays a
// pre-computed HTK-format feature-vector file directly, bypassing front
// end analysis entirely (the "-in htk" / parameter-file batch mode
// historically used to decode pre-extracted MFCC files). It does not
// implement Driver (there are no raw samples to hand the segmenter);
// instead it is consumed directly by the recognizer's feature source,
// mirroring the split the original keeps between audio-domain and
// parameter-domain input.
type HTKParamFile struct {
	f *os.File

	NSamples   int32
	SampPeriod int32 // 100ns units
	SampSize   int16
	ParmKind   int16

	read int32
}

// htkHeader is the fixed 12-byte HTK parameter file header (HTK Book
// §5.14): nSamples, sampPeriod, sampSize, parmKind.
type htkHeader struct {
	NSamples   int32
	SampPeriod int32
	SampSize   int16
	ParmKind   int16
}

// OpenHTKParamFile reads and validates the header of an HTK-format
// parameter file, leaving the file positioned at the first feature
// vector.
func OpenHTKParamFile(path string) (*HTKParamFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("adriver: open %s: %w", path, ErrDeviceError)
	}

	var hdr htkHeader
	if err := binary.Read(f, binary.BigEndian, &hdr); err != nil {
		f.Close()
		return nil, fmt.Errorf("adriver: %s: bad HTK header: %w", path, ErrDeviceError)
	}
	if hdr.SampSize <= 0 || hdr.SampSize%4 != 0 {
		f.Close()
		return nil, fmt.Errorf("adriver: %s: implausible HTK sampSize %d: %w", path, hdr.SampSize, ErrDeviceError)
	}

	return &HTKParamFile{
		f:          f,
		NSamples:   hdr.NSamples,
		SampPeriod: hdr.SampPeriod,
		SampSize:   hdr.SampSize,
		ParmKind:   hdr.ParmKind,
	}, nil
}

// VecLen reports the number of 4-byte float components per frame.
func (h *HTKParamFile) VecLen() int { return int(h.SampSize) / 4 }

// NextVector reads one feature vector, returning io.EOF once NSamples
// vectors have been delivered.
func (h *HTKParamFile) NextVector() ([]float32, error) {
	if h.read >= h.NSamples {
		return nil, io.EOF
	}
	raw := make([]byte, h.SampSize)
	if _, err := io.ReadFull(h.f, raw); err != nil {
		return nil, fmt.Errorf("adriver: short HTK read: %w", ErrDeviceError)
	}
	vec := make([]float32, h.VecLen())
	for i := range vec {
		bits := binary.BigEndian.Uint32(raw[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	h.read++
	return vec, nil
}

func (h *HTKParamFile) Close() error { return h.f.Close() }
