// Package adriver implements the uniform A/D source driver contract
// (spec component C2): a pull interface over microphone, file, stdin,
// adinnet TCP client, and plugin sources, with optional
// resampling and amplitude preprocessing shared across all of them.
package adriver

import (
	"errors"
	"fmt"
)

// Status is the result of a Read call, mirroring the four outcomes named
// in spec §4.2: a normal read, end of stream, a threaded driver with
// nothing ready yet, and a caller-initiated terminate.
type Status int

const (
	StatusOK Status = iota
	StatusEOF
	StatusWouldBlock
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEOF:
		return "eof"
	case StatusWouldBlock:
		return "would-block"
	case StatusTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Sentinel errors a Driver may wrap and return from Open/Read. Callers
// match with errors.Is; a Driver is free to add context with %w.
var (
	// ErrDeviceError marks a fatal I/O failure on the current utterance:
	// the segmenter terminates the in-flight segment and moves on.
	ErrDeviceError = errors.New("adriver: device error")
	// ErrEndOfStream marks a normal end of input (end of file, closed
	// connection on a file-like source).
	ErrEndOfStream = errors.New("adriver: end of stream")
	// ErrTerminatedByUser marks a caller-requested Terminate.
	ErrTerminatedByUser = errors.New("adriver: terminated by user")
	// ErrConfigError marks a setup-time configuration problem (missing
	// device, invalid sample rate) and is always fatal.
	ErrConfigError = errors.New("adriver: configuration error")
)

// DeviceError wraps ErrDeviceError with a driver-specific message.
func DeviceError(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDeviceError)...)
}

// Driver is the uniform pull contract every A/D source implements.
// Implementations that need a producer thread (microphones) run it
// internally and expose it only through Read/Pause/Resume/Terminate;
// Threaded reports which kind of driver this is so callers can budget
// blocking-read timeouts differently.
type Driver interface {
	// Read pulls up to len(buf) samples, returning how many were
	// written and the outcome. On StatusEOF or StatusTerminated, n may
	// be nonzero: the caller must still consume buf[:n] before
	// stopping.
	Read(buf []int16) (n int, status Status, err error)

	// Pause asks a threaded driver to stop producing; synchronous
	// drivers may treat this as a no-op since there's nothing to race
	// against between calls to Read.
	Pause() error

	// Resume undoes a prior Pause.
	Resume() error

	// Terminate unblocks any in-progress or future Read with
	// StatusTerminated and releases driver resources. Safe to call more
	// than once.
	Terminate() error

	// CurrentName reports a human-meaningful name for the current input
	// (e.g. a file path or device name), when one is available — used
	// for continuous multi-file sources like SP_RAWFILE with a prompt.
	CurrentName() (string, bool)

	// Threaded reports whether this driver runs an internal producer
	// goroutine (true for mic-like sources) or reads synchronously
	// in-line (false for files).
	Threaded() bool
}

// Params configures the Open call shared by every driver kind.
type Params struct {
	SampleRate int // Hz; most drivers expect 16000 or 48000 (with Downsample48to16)

	// Downsample48to16, when true, tells a driver capturing at 48 kHz
	// to resample down to 16 kHz before handing samples to the caller
	// (the "-48" CLI flag in spec §6).
	Downsample48to16 bool

	// StripLeadingZeros removes leading zero samples some devices emit
	// on open (disabled with "-nostrip").
	StripLeadingZeros bool

	// RemoveDCMean subtracts the running per-sample DC mean from each
	// admitted sample ("-zmean").
	RemoveDCMean bool

	// LevelScale multiplies every sample by this coefficient after DC
	// removal ("-lvscale"). Both 0.0 (the zero value) and 1.0 leave
	// samples unscaled; no LevelScale value mutes the input.
	LevelScale float64

	// ChunkSize is the number of samples a single Read should attempt
	// to deliver at once; drivers may return fewer.
	ChunkSize int
}
