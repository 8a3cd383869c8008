// Command adintool is the standalone audio capture/segmentation/
// transport front end (spec's Core A): it wires package adriver (A/D
// source drivers), package zcross (trigger detection), package segment
// (the segmenter state machine), and package outsink/transport (sink
// multiplexing and the adinnet control channel) behind the CLI surface
// spec §6 names.
//
// Grounded on the teacher's cmd/direwolf/main.go flag-and-run shape and
// on original_source/adintool/adintool.c's option set, reworked onto
// spf13/pflag and the Session/charmbracelet-log ambient stack the rest
// of this module uses.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/doismellburning/juliusgo/internal/adriver"
	"github.com/doismellburning/juliusgo/internal/outsink"
	"github.com/doismellburning/juliusgo/internal/segment"
	"github.com/doismellburning/juliusgo/internal/session"
	"github.com/doismellburning/juliusgo/internal/transport"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type config struct {
	in, out                           string
	servers                           []string
	ports                             []int
	inport                            int
	filename                          string
	startID                           int
	freq                              int
	use48                             bool
	level                             int
	zeroCross                         int
	headMarginMS, tailMarginMS        int
	chunkSize                         int
	nostrip, zmean                    bool
	lvscale                           float64
	nosegment, onlySegment, oneshot   bool
	autopause, loosesync              bool
	rewindMS                          int
	paramtype                         string
	veclen                            int
	raw                               bool
}

func run(args []string) int {
	fs := pflag.NewFlagSet("adintool", pflag.ContinueOnError)
	c := config{}
	fs.StringVar(&c.in, "in", "mic", "input source: mic|file|stdin|adinnet|netaudio|alsa|oss|esd|pulseaudio")
	fs.StringVar(&c.out, "out", "stdout", "output sink: file|stdout|adinnet|vecnet|none")
	servers := fs.String("server", "", "comma-separated adinnet server host list")
	ports := fs.String("port", "5530", "comma-separated adinnet server port list")
	fs.IntVar(&c.inport, "inport", 5530, "adinnet listen port for -in adinnet")
	fs.StringVar(&c.filename, "filename", "", "input file path (-in file) or output base path (-out file)")
	fs.IntVar(&c.startID, "startid", 0, "starting counter for continuous-mode filenames")
	fs.IntVar(&c.freq, "freq", 16000, "sample rate in Hz")
	fs.BoolVar(&c.use48, "48", false, "capture at 48kHz and downsample to 16kHz")
	fs.IntVar(&c.level, "lv", 2000, "trigger level threshold")
	fs.IntVar(&c.zeroCross, "zc", 60, "zero-cross count threshold per second")
	fs.IntVar(&c.headMarginMS, "headmargin", 300, "head margin in milliseconds")
	fs.IntVar(&c.tailMarginMS, "tailmargin", 400, "tail margin in milliseconds")
	fs.IntVar(&c.chunkSize, "chunksize", 1024, "samples read per driver chunk")
	fs.BoolVar(&c.nostrip, "nostrip", false, "disable leading-zero stripping")
	fs.BoolVar(&c.zmean, "zmean", false, "enable DC-mean removal")
	fs.Float64Var(&c.lvscale, "lvscale", 1.0, "amplitude scale factor")
	fs.BoolVar(&c.nosegment, "nosegment", false, "disable segmentation: treat entire input as one segment")
	fs.BoolVar(&c.onlySegment, "segment", false, "force continuous multi-segment mode")
	fs.BoolVar(&c.oneshot, "oneshot", false, "stop after the first segment")
	fs.BoolVar(&c.autopause, "autopause", false, "automatically pause after each segment")
	fs.BoolVar(&c.loosesync, "loosesync", false, "use loose multi-server resume synchronization")
	fs.IntVar(&c.rewindMS, "rewind", 0, "rewind-on-retrigger window in milliseconds")
	fs.StringVar(&c.paramtype, "paramtype", "MFCC_E_D_N_Z", "vecnet feature parameter type label")
	fs.IntVar(&c.veclen, "veclen", 25, "vecnet feature vector length")
	fs.BoolVar(&c.raw, "raw", false, "write raw PCM instead of WAV for -out file")

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *servers != "" {
		c.servers = strings.Split(*servers, ",")
	}
	for _, p := range strings.Split(*ports, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			fmt.Fprintf(os.Stderr, "adintool: invalid -port value %q\n", p)
			return 1
		}
		c.ports = append(c.ports, n)
	}

	sess := session.New(log.InfoLevel)
	defer sess.Close()

	code, err := runWithConfig(sess, c)
	if err != nil {
		sess.Log.Error("adintool failed", "err", err)
	}
	return code
}

func runWithConfig(sess *session.Session, c config) (int, error) {
	driver, err := openDriver(c)
	if err != nil {
		sess.Log.Error("failed to open input", "err", err)
		return 1, err
	}
	sess.OnClose(driver.Terminate)

	sink, err := openSink(c, sess)
	if err != nil {
		sess.Log.Error("failed to open output", "err", err)
		return 1, err
	}
	sess.OnClose(sink.EndSession)

	seg := segment.New(driver, segmentParams(c), c.level, 0, c.zeroCross, c.freq)

	cb := segment.Callbacks{
		Sink:       sink.Write,
		SegmentEnd: sink.EndSegment,
		Control:    func() (segment.ControlAction, error) { return segment.ControlNone, nil },
		WaitResume: func() (bool, error) { return true, nil },
	}

	if ctrl, ok := sinkController(sink, c); ok {
		cb.Control = ctrl.poll
		cb.WaitResume = ctrl.waitResume
	}

	code, err := seg.Run(cb)
	if err != nil {
		return 1, err
	}
	switch code {
	case segment.CodeError:
		return 1, nil
	case segment.CodeTerminatedByRemote:
		return 1, nil
	default:
		return 0, nil
	}
}

func segmentParams(c config) segment.Params {
	headMargin := c.headMarginMS * c.freq / 1000
	tailMargin := c.tailMarginMS * c.freq / 1000
	rewind := c.rewindMS * c.freq / 1000
	continuous := !c.nosegment && !c.oneshot
	if c.onlySegment {
		continuous = true
	}
	return segment.Params{
		HeadMarginSamples: headMargin,
		TailMarginSamples: tailMargin,
		RewindSamples:     rewind,
		Continuous:        continuous,
		ChunkSize:         c.chunkSize,
	}
}

func driverParams(c config) adriver.Params {
	return adriver.Params{
		SampleRate:        c.freq,
		Downsample48to16:  c.use48,
		StripLeadingZeros: !c.nostrip,
		RemoveDCMean:      c.zmean,
		LevelScale:        c.lvscale,
		ChunkSize:         c.chunkSize,
	}
}

func openDriver(c config) (adriver.Driver, error) {
	p := driverParams(c)
	switch c.in {
	case "mic", "alsa", "oss", "esd", "pulseaudio":
		return adriver.OpenMic(p)
	case "file":
		if c.filename == "" {
			return nil, fmt.Errorf("adintool: -in file requires -filename")
		}
		return adriver.OpenFile(c.filename, adriver.FormatWAV, p)
	case "stdin":
		return adriver.OpenStdin(p), nil
	case "adinnet":
		return adriver.ListenAdinNet(c.inport, p)
	default:
		return nil, fmt.Errorf("adintool: unsupported -in %q", c.in)
	}
}

func openSink(c config, sess *session.Session) (outsink.Sink, error) {
	switch c.out {
	case "file":
		format := outsink.FormatWAV
		if c.raw {
			format = outsink.FormatRawPCM
		}
		continuous := !c.nosegment && !c.oneshot
		return outsink.NewFileSink(c.filename, format, continuous, c.startID, c.freq, ""), nil
	case "stdout":
		return outsink.NewStdoutSink(os.Stdout), nil
	case "adinnet":
		endpoints := dialEndpoints(c)
		peers, err := transport.DialPeers(endpoints, 5*time.Second)
		if err != nil && len(peers) == 0 {
			return nil, err
		}
		mode := transport.SyncStrict
		if c.loosesync {
			mode = transport.SyncLoose
		}
		return outsink.AdinNetSinkAdapter{AdinNetSink: transport.NewAdinNetSink(peers, mode, sess.Log)}, nil
	case "vecnet":
		if len(c.servers) == 0 {
			return nil, fmt.Errorf("adintool: -out vecnet requires -server")
		}
		addr := fmt.Sprintf("%s:%d", c.servers[0], firstOr(c.ports, 5530))
		vs, err := transport.NewVecNetSink(addr, c.veclen, frameShiftMS, false)
		if err != nil {
			return nil, err
		}
		return outsink.VecNetSinkAdapter{VecNetSink: vs}, nil
	case "none":
		return noopSink{}, nil
	default:
		return nil, fmt.Errorf("adintool: unsupported -out %q", c.out)
	}
}

const frameShiftMS = 10

func dialEndpoints(c config) []string {
	var eps []string
	for i, host := range c.servers {
		port := firstOr(c.ports, 5530)
		if i < len(c.ports) {
			port = c.ports[i]
		}
		eps = append(eps, fmt.Sprintf("%s:%d", host, port))
	}
	return eps
}

func firstOr(ports []int, fallback int) int {
	if len(ports) == 0 {
		return fallback
	}
	return ports[0]
}

// controller adapts an adinnet sink's control channel to the
// segment.Callbacks contract.
type controller struct {
	sink *transport.AdinNetSink
}

func sinkController(sink outsink.Sink, c config) (*controller, bool) {
	adapter, ok := sink.(outsink.AdinNetSinkAdapter)
	if !ok {
		return nil, false
	}
	return &controller{sink: adapter.AdinNetSink}, true
}

func (ctl *controller) poll() (segment.ControlAction, error) {
	result, err := ctl.sink.PollControl()
	if err != nil {
		return segment.ControlNone, err
	}
	switch result.Action {
	case transport.ActionPause:
		return segment.ControlPause, nil
	case transport.ActionResume:
		return segment.ControlResume, nil
	case transport.ActionTerminate:
		return segment.ControlTerminate, nil
	default:
		return segment.ControlNone, nil
	}
}

func (ctl *controller) waitResume() (bool, error) {
	return ctl.sink.WaitResume(50 * time.Millisecond)
}

type noopSink struct{}

func (noopSink) Write([]int16) error { return nil }
func (noopSink) EndSegment() error   { return nil }
func (noopSink) EndSession() error   { return nil }
