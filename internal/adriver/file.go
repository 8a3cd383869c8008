package adriver

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// FileFormat selects how OpenFile interprets the bytes on disk.
type FileFormat int

const (
	FormatRawPCM FileFormat = iota
	FormatWAV
)

// FileDriver is a synchronous (non-threaded) source reading a single
// pre-recorded audio file, used for "-in file" batch/offline decoding.
type FileDriver struct {
	path string
	r    *bufio.Reader
	f    *os.File
	pre  *Preprocessor

	terminated bool
}

// OpenFile opens path for reading as either raw headerless PCM or a
// RIFF/WAVE file (AudioFormat=1, NumChannels=1, BitsPerSample=16 are the
// only combination accepted, matching spec §6's output contract applied
// symmetrically to input).
func OpenFile(path string, format FileFormat, params Params) (*FileDriver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("adriver: open %s: %w", path, ErrDeviceError)
	}
	r := bufio.NewReader(f)

	if format == FormatWAV {
		if err := skipWAVHeader(r); err != nil {
			f.Close()
			return nil, fmt.Errorf("adriver: %s: %w: %v", path, ErrDeviceError, err)
		}
	}

	return &FileDriver{path: path, r: r, f: f, pre: NewPreprocessor(params)}, nil
}

// skipWAVHeader validates and consumes a canonical RIFF/WAVE header,
// leaving r positioned at the start of the "data" chunk payload.
func skipWAVHeader(r *bufio.Reader) error {
	var riffHdr [12]byte
	if _, err := io.ReadFull(r, riffHdr[:]); err != nil {
		return err
	}
	if string(riffHdr[0:4]) != "RIFF" || string(riffHdr[8:12]) != "WAVE" {
		return fmt.Errorf("not a RIFF/WAVE file")
	}

	for {
		var chunkHdr [8]byte
		if _, err := io.ReadFull(r, chunkHdr[:]); err != nil {
			return err
		}
		id := string(chunkHdr[0:4])
		size := binary.LittleEndian.Uint32(chunkHdr[4:8])

		if id == "fmt " {
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return err
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			numChannels := binary.LittleEndian.Uint16(body[2:4])
			bitsPerSample := binary.LittleEndian.Uint16(body[14:16])
			if audioFormat != 1 || numChannels != 1 || bitsPerSample != 16 {
				return fmt.Errorf("unsupported WAV format (fmt=%d channels=%d bits=%d), want PCM mono 16-bit", audioFormat, numChannels, bitsPerSample)
			}
			continue
		}
		if id == "data" {
			return nil
		}
		// Skip any other chunk (LIST, fact, ...), padded to even size.
		skip := int64(size)
		if size%2 == 1 {
			skip++
		}
		if _, err := io.CopyN(io.Discard, r, skip); err != nil {
			return err
		}
	}
}

func (d *FileDriver) Read(buf []int16) (int, Status, error) {
	if d.terminated {
		return 0, StatusTerminated, ErrTerminatedByUser
	}
	raw := make([]byte, len(buf)*2)
	n, err := io.ReadFull(d.r, raw)
	samples := n / 2
	for i := 0; i < samples; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	samples = d.pre.Apply(buf, samples)

	switch {
	case err == nil:
		return samples, StatusOK, nil
	case err == io.ErrUnexpectedEOF || err == io.EOF:
		if samples > 0 {
			return samples, StatusOK, nil
		}
		return 0, StatusEOF, ErrEndOfStream
	default:
		return samples, StatusOK, DeviceError("adriver: read %s", d.path)
	}
}

func (d *FileDriver) Pause() error  { return nil } // synchronous driver: nothing to race
func (d *FileDriver) Resume() error { return nil }

func (d *FileDriver) Terminate() error {
	d.terminated = true
	return d.f.Close()
}

func (d *FileDriver) CurrentName() (string, bool) { return d.path, true }
func (d *FileDriver) Threaded() bool              { return false }
