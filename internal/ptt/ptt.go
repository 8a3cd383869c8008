// Package ptt drives a GPIO line that indicates "recording in progress"
// for the duration of a captured speech segment, the adintool analogue
// of the teacher's PTT (push-to-talk) keying line.
//
// The teacher keys a GPIO line through cgo libgpiod bindings (src/ptt.go,
// PTT_METHOD_GPIOD, gpiod_probe/gpiod_set_value). This package keeps the
// same "chip device path + line offset" addressing scheme but drives the
// line through the pure-Go github.com/warthog618/go-gpiocdev instead of
// cgo, since nothing else in this module needs CGO_ENABLED.
package ptt

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// gpioLine is the subset of *gpiocdev.Line this package drives, broken
// out so tests can substitute a fake without gpio-sim hardware.
type gpioLine interface {
	SetValue(int) error
	Close() error
}

// Line holds a single requested GPIO output line, asserted while a
// segment is open and deasserted once it closes.
type Line struct {
	chip     *gpiocdev.Chip
	line     gpioLine
	inverted bool
}

// Open requests chipPath's offset line as an output, initially
// deasserted. inverted swaps the meaning of Assert/Deassert, for wiring
// where the indicator is active-low.
func Open(chipPath string, offset int, inverted bool) (*Line, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("ptt: open chip %s: %w", chipPath, err)
	}

	initial := 0
	if inverted {
		initial = 1
	}

	line, err := chip.RequestLine(offset,
		gpiocdev.AsOutput(initial),
		gpiocdev.WithConsumer("juliusgo-adintool"),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("ptt: request line %d on %s: %w", offset, chipPath, err)
	}

	return &Line{chip: chip, line: line, inverted: inverted}, nil
}

// Assert raises the indicator (speech segment open).
func (l *Line) Assert() error {
	return l.set(!l.inverted)
}

// Deassert lowers the indicator (segment closed or idle).
func (l *Line) Deassert() error {
	return l.set(l.inverted)
}

func (l *Line) set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("ptt: set value: %w", err)
	}
	return nil
}

// Close releases the line and chip handle.
func (l *Line) Close() error {
	lerr := l.line.Close()
	var cerr error
	if l.chip != nil {
		cerr = l.chip.Close()
	}
	if lerr != nil {
		return lerr
	}
	return cerr
}
