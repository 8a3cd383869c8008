package ptt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockGPIOLine is a test double for gpioLine that records calls without
// requiring a real gpio-sim chip.
type mockGPIOLine struct {
	value  int
	closed bool
}

func (m *mockGPIOLine) SetValue(v int) error {
	m.value = v
	return nil
}

func (m *mockGPIOLine) Close() error {
	m.closed = true
	return nil
}

func TestLineAssertDeassertNormal(t *testing.T) {
	mock := &mockGPIOLine{}
	l := &Line{line: mock, inverted: false}

	assert.NoError(t, l.Assert())
	assert.Equal(t, 1, mock.value)

	assert.NoError(t, l.Deassert())
	assert.Equal(t, 0, mock.value)
}

func TestLineAssertDeassertInverted(t *testing.T) {
	mock := &mockGPIOLine{}
	l := &Line{line: mock, inverted: true}

	assert.NoError(t, l.Assert())
	assert.Equal(t, 0, mock.value, "inverted line: asserted means driven low")

	assert.NoError(t, l.Deassert())
	assert.Equal(t, 1, mock.value, "inverted line: deasserted means driven high")
}

func TestLineCloseWithoutChip(t *testing.T) {
	mock := &mockGPIOLine{}
	l := &Line{line: mock}

	assert.NoError(t, l.Close())
	assert.True(t, mock.closed)
}
