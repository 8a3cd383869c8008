package outsink

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkOneShotRawWritesSamplesVerbatim(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "capture")
	sink := NewFileSink(base, FormatRawPCM, false, 0, 16000, "")

	require.NoError(t, sink.Write([]int16{1, 2, 3}))
	require.NoError(t, sink.Write([]int16{-4}))
	require.NoError(t, sink.EndSegment())
	require.NoError(t, sink.EndSession())

	data, err := os.ReadFile(base + ".raw")
	require.NoError(t, err)
	require.Len(t, data, 8)
	assert.Equal(t, int16(1), int16(binary.LittleEndian.Uint16(data[0:2])))
	assert.Equal(t, int16(2), int16(binary.LittleEndian.Uint16(data[2:4])))
	assert.Equal(t, int16(3), int16(binary.LittleEndian.Uint16(data[4:6])))
	assert.Equal(t, int16(-4), int16(binary.LittleEndian.Uint16(data[6:8])))
}

func TestFileSinkContinuousModeNamesFilesByCounter(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "capture")
	sink := NewFileSink(base, FormatRawPCM, true, 7, 16000, "")

	require.NoError(t, sink.Write([]int16{1}))
	require.NoError(t, sink.EndSegment()) // continuous mode closes the file here

	require.NoError(t, sink.Write([]int16{2}))
	require.NoError(t, sink.EndSegment())

	_, err := os.Stat(base + ".0007.raw")
	require.NoError(t, err)
	_, err = os.Stat(base + ".0008.raw")
	require.NoError(t, err)
}

func TestFileSinkWAVPatchesRIFFAndDataSizesOnEndSegment(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "capture")
	sink := NewFileSink(base, FormatWAV, false, 0, 16000, "")

	samples := []int16{1, 2, 3, 4, 5}
	require.NoError(t, sink.Write(samples))
	require.NoError(t, sink.EndSegment())
	require.NoError(t, sink.EndSession())

	data, err := os.ReadFile(base + ".wav")
	require.NoError(t, err)
	require.Len(t, data, 44+len(samples)*2)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))

	wantDataSize := uint32(len(samples) * 2)
	assert.Equal(t, uint32(36)+wantDataSize, binary.LittleEndian.Uint32(data[4:8]), "RIFF chunk size")
	assert.Equal(t, wantDataSize, binary.LittleEndian.Uint32(data[40:44]), "data chunk size")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]), "bits per sample")
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(data[24:28]), "sample rate")
}

func TestFileSinkEndSegmentIsNoOpBeforeAnyWrite(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "never-written"), FormatRawPCM, false, 0, 16000, "")
	assert.NoError(t, sink.EndSegment())
	assert.NoError(t, sink.EndSession())
}
