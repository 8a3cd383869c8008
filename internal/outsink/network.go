package outsink

import "github.com/doismellburning/juliusgo/internal/transport"

// AdinNetSinkAdapter adapts transport.AdinNetSink to the Sink interface
// so it can be combined with file/stdout sinks via NewMultiSink.
type AdinNetSinkAdapter struct {
	*transport.AdinNetSink
}

func (a AdinNetSinkAdapter) Write(samples []int16) error { return a.Send(samples) }

// VecNetSinkAdapter adapts transport.VecNetSink to the Sink interface.
// The feature vectors come from the caller's front end; outsink itself
// carries no front-end analysis (spec's explicit Non-goal), so
// VecNetSinkAdapter only forwards vectors handed to it, one per
// WriteVector call.
type VecNetSinkAdapter struct {
	*transport.VecNetSink
}

// WriteVector forwards a single feature vector; Write (the raw-samples
// Sink method) is intentionally unsupported for vecnet, since vecnet
// carries vectors, not waveform samples.
func (a VecNetSinkAdapter) WriteVector(vec []float32) error { return a.SendVector(vec) }

func (a VecNetSinkAdapter) Write(samples []int16) error {
	return errVecNetNoRawSamples
}

var errVecNetNoRawSamples = vecNetNoRawSamplesError{}

type vecNetNoRawSamplesError struct{}

func (vecNetNoRawSamplesError) Error() string {
	return "outsink: vecnet sink does not accept raw samples; use WriteVector"
}
