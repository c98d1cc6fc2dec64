//go:build idmapdebug

package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugChecksEnabled(t *testing.T) {
	assert.True(t, debugChecks)
}

func TestDebugChecksPanicOnCorruption(t *testing.T) {
	m := New[int, uint8, uint8](4)

	// Slot 3 claims to be live while still queued as free.
	m.slots.at(3).gen = 1

	assert.Panics(t, func() { _, _ = m.Insert(7) })
}

func TestDebugChecksQuietOnValidChurn(t *testing.T) {
	m := New[int, uint8, uint8](4)
	assert.NotPanics(t, func() {
		a, _ := m.Insert(1)
		b, _ := m.Insert(2)
		m.Erase(a)
		_ = m.Grow(4)
		_ = m.InsertAt(a, 3)
		m.Erase(b)
		m.Clear()
	})
}
