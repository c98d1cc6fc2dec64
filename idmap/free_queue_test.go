package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queued[I Index](q *freeQueue[I]) []I {
	var out []I
	q.each(func(i I) bool {
		out = append(out, i)
		return true
	})
	return out
}

func newQueue(capacity int) *freeQueue[uint8] {
	q := &freeQueue[uint8]{}
	q.grow(capacity, 0)
	return q
}

func TestFreeQueueFIFO(t *testing.T) {
	q := newQueue(4)
	assert.Equal(t, []uint8{0, 1, 2, 3}, queued(q))

	assert.Equal(t, uint8(0), q.pop())
	assert.Equal(t, uint8(1), q.pop())
	assert.Equal(t, 2, q.len())

	q.push(1)
	q.push(0)
	assert.Equal(t, []uint8{2, 3, 1, 0}, queued(q))

	for _, want := range []uint8{2, 3, 1, 0} {
		assert.Equal(t, want, q.pop())
	}
	assert.Equal(t, 0, q.len())
}

func TestFreeQueuePopEmptyPanics(t *testing.T) {
	q := newQueue(1)
	q.pop()
	assert.Panics(t, func() { q.pop() })
}

func TestFreeQueueReclaim(t *testing.T) {
	q := newQueue(5)

	// Rotate the ring so the live entries wrap around the end of the buffer.
	q.pop()
	q.pop()
	q.pop()
	q.push(0)
	q.push(1)
	require.Equal(t, []uint8{3, 4, 0, 1}, queued(q))
	require.Less(t, q.tail, q.head)

	assert.True(t, q.reclaim(0))
	assert.Equal(t, []uint8{3, 4, 1}, queued(q))

	assert.True(t, q.reclaim(3))
	assert.Equal(t, []uint8{4, 1}, queued(q))

	assert.False(t, q.reclaim(3))
	assert.False(t, q.reclaim(2))

	q.push(2)
	assert.Equal(t, []uint8{4, 1, 2}, queued(q))
	assert.Equal(t, uint8(4), q.pop())
}

func TestFreeQueueGrowHeadBeforeTail(t *testing.T) {
	q := newQueue(4)
	for i := 0; i < 4; i++ {
		q.pop()
	}
	q.push(2)
	q.push(1)
	q.push(3)
	q.pop()
	require.Equal(t, []uint8{1, 3}, queued(q))
	require.Less(t, q.head, q.tail)

	q.grow(3, 4)
	assert.Equal(t, []uint8{1, 3, 4, 5, 6}, queued(q))
	assert.Equal(t, 7, len(q.buf))

	q.push(0)
	assert.Equal(t, []uint8{1, 3, 4, 5, 6, 0}, queued(q))
}

func TestFreeQueueGrowHeadAfterTail(t *testing.T) {
	q := newQueue(4)
	q.pop()
	q.pop()
	q.push(0)
	require.Equal(t, []uint8{2, 3, 0}, queued(q))
	require.Less(t, q.tail, q.head)

	q.grow(2, 4)
	assert.Equal(t, []uint8{2, 3, 0, 4, 5}, queued(q))

	q.push(1)
	assert.Equal(t, 6, q.len())
	for _, want := range []uint8{2, 3, 0, 4, 5, 1} {
		assert.Equal(t, want, q.pop())
	}
}

func TestFreeQueueGrowWhenEmpty(t *testing.T) {
	q := newQueue(2)
	q.pop()
	q.pop()

	q.grow(2, 2)
	assert.Equal(t, []uint8{2, 3}, queued(q))

	q.push(0)
	q.push(1)
	assert.Equal(t, []uint8{2, 3, 0, 1}, queued(q))
}

func TestFreeQueueReset(t *testing.T) {
	q := newQueue(3)
	q.pop()
	q.pop()
	q.push(0)

	q.reset()
	assert.Equal(t, []uint8{0, 1, 2}, queued(q))
	assert.Equal(t, 3, q.len())
}
