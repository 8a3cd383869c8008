package adriver

import (
	"fmt"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// MicDriver captures from the default (or a named) input device via
// PortAudio, the teacher's portable stand-in for the original's
// ALSA/OSS/PulseAudio/ESD cgo bindings (src/audio.go). It runs a
// producer goroutine fed by the PortAudio callback and exposes samples to
// the consumer through the shared bounded fifo.
type MicDriver struct {
	params Params
	pre    *Preprocessor
	resamp *Resampler48to16

	stream *portaudio.Stream
	q      *fifo

	paused      atomic.Bool
	terminated  atomic.Bool
	deviceName  string
	captureRate int
}

// OpenMic opens the system default capture device at params.SampleRate
// (or 48000 when Downsample48to16 is set, resampling down to 16000
// internally).
func OpenMic(params Params) (*MicDriver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("adriver: portaudio init: %w", ErrConfigError)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("adriver: no default input device: %w", ErrConfigError)
	}

	captureRate := params.SampleRate
	if params.Downsample48to16 {
		captureRate = 48000
	}

	m := &MicDriver{
		params:      params,
		pre:         NewPreprocessor(params),
		deviceName:  dev.Name,
		captureRate: captureRate,
		q:           newFIFO(captureRate * 10), // 10 seconds of back-pressure headroom
	}
	if params.Downsample48to16 {
		m.resamp = NewResampler48to16()
	}

	streamParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(captureRate),
		FramesPerBuffer: params.ChunkSize,
	}

	stream, err := portaudio.OpenStream(streamParams, m.onSamples)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("adriver: open stream: %w", ErrConfigError)
	}
	m.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("adriver: start stream: %w", ErrConfigError)
	}

	return m, nil
}

// onSamples is the PortAudio callback invoked on its own internal
// real-time thread; it must not block, so it only copies into the fifo.
func (m *MicDriver) onSamples(in []int16) {
	if m.paused.Load() || m.terminated.Load() {
		return
	}
	if m.resamp != nil {
		out := m.resamp.Feed(make([]int16, 0, len(in)/decimationFactor+1), in)
		m.q.Push(out)
	} else {
		m.q.Push(in)
	}
}

func (m *MicDriver) Read(buf []int16) (int, Status, error) {
	if m.terminated.Load() {
		return 0, StatusTerminated, ErrTerminatedByUser
	}
	n, _ := m.q.Pop(buf)
	if n == 0 {
		return 0, StatusWouldBlock, nil
	}
	n = m.pre.Apply(buf, n)
	return n, StatusOK, nil
}

func (m *MicDriver) Pause() error {
	m.paused.Store(true)
	return nil
}

func (m *MicDriver) Resume() error {
	m.paused.Store(false)
	return nil
}

func (m *MicDriver) Terminate() error {
	if m.terminated.Swap(true) {
		return nil
	}
	m.q.Close()
	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
	}
	portaudio.Terminate()
	return nil
}

func (m *MicDriver) CurrentName() (string, bool) { return m.deviceName, true }
func (m *MicDriver) Threaded() bool              { return true }
