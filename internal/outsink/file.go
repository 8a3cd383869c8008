package outsink

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

// FileFormat selects the on-disk encoding FileSink writes.
type FileFormat int

const (
	FormatRawPCM FileFormat = iota
	FormatWAV
)

// FileSink writes each segment to disk. In one-shot mode it writes a
// single file per process, named "<base><ext>"; in continuous mode it opens a fresh file per
// segment named "<base>.<NNNN><ext>" with a counter starting at startID,
// the naming convention spec §4.4 names for continuous-mode recording.
// A non-empty strftimePattern additionally substitutes a timestamp into
// base before the counter is appended (the teacher's own save-audio
// naming in src/tq.go uses the same lestrrat-go/strftime package for
// this kind of recording-filename templating).
type FileSink struct {
	base            string
	ext             string
	format          FileFormat
	continuous      bool
	strftimePattern string
	nextID          int
	sampleRate      int

	f            *os.File
	dataStart    int64 // offset of the WAV "data" chunk payload, for size patching
	bytesWritten int64
}

// NewFileSink builds a sink writing to base+ext (for one-shot mode) or
// base.NNNN.ext (for continuous mode, counter starting at startID), where
// ext is ".raw" or ".wav" according to format.
func NewFileSink(base string, format FileFormat, continuous bool, startID int, sampleRate int, strftimePattern string) *FileSink {
	ext := ".raw"
	if format == FormatWAV {
		ext = ".wav"
	}
	return &FileSink{
		base:            base,
		ext:             ext,
		format:          format,
		continuous:      continuous,
		strftimePattern: strftimePattern,
		nextID:          startID,
		sampleRate:      sampleRate,
	}
}

func (fs *FileSink) nextPath() (string, error) {
	base := fs.base
	if fs.strftimePattern != "" {
		stamped, err := strftime.Format(fs.strftimePattern, time.Now())
		if err != nil {
			return "", fmt.Errorf("outsink: strftime pattern %q: %w", fs.strftimePattern, err)
		}
		base = stamped
	}
	if !fs.continuous {
		return base + fs.ext, nil
	}
	path := fmt.Sprintf("%s.%04d%s", base, fs.nextID, fs.ext)
	fs.nextID++
	return path, nil
}

func (fs *FileSink) ensureOpen() error {
	if fs.f != nil {
		return nil
	}
	path, err := fs.nextPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !os.IsExist(err) {
		return fmt.Errorf("outsink: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("outsink: create %s: %w", path, err)
	}
	fs.f = f
	fs.bytesWritten = 0

	if fs.format == FormatWAV {
		if err := fs.writeWAVPlaceholderHeader(); err != nil {
			f.Close()
			return err
		}
	}
	return nil
}

func (fs *FileSink) writeWAVPlaceholderHeader() error {
	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	// sizes patched in finalize()
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(hdr[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], 1)  // mono
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(fs.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(fs.sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(hdr[32:34], 2)                      // block align
	binary.LittleEndian.PutUint16(hdr[34:36], 16)                     // bits per sample
	copy(hdr[36:40], "data")
	if _, err := fs.f.Write(hdr[:]); err != nil {
		return fmt.Errorf("outsink: write WAV header: %w", err)
	}
	fs.dataStart = 44
	return nil
}

func (fs *FileSink) Write(samples []int16) error {
	if err := fs.ensureOpen(); err != nil {
		return err
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	n, err := fs.f.Write(buf)
	fs.bytesWritten += int64(n)
	if err != nil {
		return fmt.Errorf("outsink: write samples: %w", err)
	}
	return nil
}

// EndSegment finalizes the current file: for WAV, patches the RIFF and
// data chunk sizes now that the total is known; for continuous mode,
// closes the file so the next segment opens a fresh one.
func (fs *FileSink) EndSegment() error {
	if fs.f == nil {
		return nil
	}
	if fs.format == FormatWAV {
		if err := fs.patchWAVSizes(); err != nil {
			return err
		}
	}
	if fs.continuous {
		err := fs.f.Close()
		fs.f = nil
		return err
	}
	return nil
}

func (fs *FileSink) patchWAVSizes() error {
	riffSize := uint32(36 + fs.bytesWritten)
	dataSize := uint32(fs.bytesWritten)
	var sizeBuf [4]byte

	binary.LittleEndian.PutUint32(sizeBuf[:], riffSize)
	if _, err := fs.f.WriteAt(sizeBuf[:], 4); err != nil {
		return fmt.Errorf("outsink: patch RIFF size: %w", err)
	}
	binary.LittleEndian.PutUint32(sizeBuf[:], dataSize)
	if _, err := fs.f.WriteAt(sizeBuf[:], 40); err != nil {
		return fmt.Errorf("outsink: patch data size: %w", err)
	}
	return nil
}

func (fs *FileSink) EndSession() error {
	if fs.f == nil {
		return nil
	}
	if fs.format == FormatWAV {
		if err := fs.patchWAVSizes(); err != nil {
			return err
		}
	}
	err := fs.f.Close()
	fs.f = nil
	return err
}
