//go:build !idmapdebug

package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugChecksDisabled(t *testing.T) {
	assert.False(t, debugChecks)

	m := New[int, uint8, uint8](4)
	m.slots.at(3).gen = 1

	// Release builds do not check after each mutation, but the explicit
	// check still finds the corruption.
	assert.NotPanics(t, func() { _, _ = m.Insert(7) })
	assert.Error(t, m.CheckInvariants())
}
