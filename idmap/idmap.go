// Package idmap implements a generational slot allocator. A Map stores values
// in a fixed set of slots and hands out Handles that pack the slot index with
// a per-slot generation counter, so a Handle to an erased value is detected
// as stale instead of silently reaching whatever reused the slot.
//
// Freed slots are reused oldest-first. A Map never grows on its own; call
// Grow when Full reports true. A Map is not safe for concurrent use.
//
// Building with -tags idmapdebug checks the map's structure after every
// mutation and panics on the first inconsistency. Run the tests both ways:
//
//	go test ./idmap/...
//	go test -tags idmapdebug ./idmap/...
package idmap

import (
	"fmt"
	"iter"
)

type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Map is a generational slot allocator of values of type V, addressed by slot
// indices of type I and versioned by counters of type C.
//
// The capacity is bounded by MaxCapacity[I] and each slot can be reused
// GenerationSpace[C] times before its generations repeat. A handle held
// across that many reuses of its slot can validate again; pick C wide enough
// that this cannot happen in practice.
type Map[V any, I Index, C Counter] struct {
	noCopy noCopy

	slots storage[V, C]
	free  freeQueue[I]
}

// New creates a Map with the given number of free slots.
func New[V any, I Index, C Counter](capacity int) *Map[V, I, C] {
	if capacity < 0 || capacity > MaxCapacity[I]() {
		panic(fmt.Sprintf("idmap: capacity %d out of range [0, %d]", capacity, MaxCapacity[I]()))
	}

	m := &Map[V, I, C]{}
	m.slots.grow(capacity)
	m.free.grow(capacity, 0)
	return m
}

// Insert stores value in the oldest free slot and returns its handle.
// It returns ErrCapacityExceeded, and changes nothing, when the map is full.
func (m *Map[V, I, C]) Insert(value V) (Handle, error) {
	if m.Full() {
		return Nil, ErrCapacityExceeded
	}

	index := m.free.pop()
	gen := nextGeneration(m.slots.generation(int(index)))
	m.slots.constructAt(int(index), value, gen)

	m.checkInvariants()
	return Encode(index, gen), nil
}

// InsertAt stores value at exactly the slot and generation encoded in h, so
// handles issued by another Map (a replication authority, a recorded session)
// can be reproduced. The generation is taken as given: the caller is
// responsible for not replaying a generation older than one it already used
// for the slot.
//
// InsertAt is O(capacity) because the slot is removed from the middle of the
// free queue.
func (m *Map[V, I, C]) InsertAt(h Handle, value V) error {
	index, gen, ok := decode[I, C](h)
	if !ok || int(index) >= m.Cap() || !isLive(gen) {
		return &HandleError{Op: "insert", Handle: h, Err: ErrInvalidHandle}
	}
	if !m.slots.isFree(int(index)) {
		return &HandleError{Op: "insert", Handle: h, Err: ErrSlotOccupied}
	}

	if !m.free.reclaim(index) {
		panic(fmt.Sprintf("idmap: free slot %d missing from free queue", index))
	}
	m.slots.constructAt(int(index), value, gen)

	m.checkInvariants()
	return nil
}

// Erase removes the value referenced by h. Erasing a stale, nil or foreign
// handle does nothing and returns false.
func (m *Map[V, I, C]) Erase(h Handle) bool {
	index, ok := m.live(h)
	if !ok {
		return false
	}

	m.slots.destructAt(index)
	m.free.push(I(index))

	m.checkInvariants()
	return true
}

// Clear erases every value. Capacity is kept and the free queue is rebuilt
// in index order. Generations are kept so handles issued before Clear stay
// stale afterwards.
func (m *Map[V, I, C]) Clear() {
	m.slots.clear()
	m.free.reset()
	m.checkInvariants()
}

// Grow adds amount free slots. Live handles keep their index and generation,
// pointers returned by Get stay valid, and the new slots are reused only
// after every slot that was already free.
func (m *Map[V, I, C]) Grow(amount int) error {
	if amount < 0 {
		panic(fmt.Sprintf("idmap: negative grow amount %d", amount))
	}
	if amount == 0 {
		return nil
	}

	oldCap := m.Cap()
	if oldCap+amount > MaxCapacity[I]() {
		return ErrCapacityExceeded
	}

	m.slots.grow(oldCap + amount)
	m.free.grow(amount, oldCap)

	m.checkInvariants()
	return nil
}

// Validate reports whether h refers to a live value of this map.
func (m *Map[V, I, C]) Validate(h Handle) bool {
	_, ok := m.live(h)
	return ok
}

// Get returns a pointer to the value referenced by h. It panics with a
// *HandleError wrapping ErrInvalidHandle or ErrStaleHandle if h is not live;
// use Validate or Lookup where staleness is expected.
func (m *Map[V, I, C]) Get(h Handle) *V {
	v, err := m.lookup(h)
	if err != nil {
		panic(err)
	}
	return v
}

// Lookup returns a pointer to the value referenced by h, or false if h is
// not live.
func (m *Map[V, I, C]) Lookup(h Handle) (*V, bool) {
	v, err := m.lookup(h)
	return v, err == nil
}

func (m *Map[V, I, C]) lookup(h Handle) (*V, error) {
	index, gen, ok := decode[I, C](h)
	if !ok || int(index) >= m.Cap() {
		return nil, &HandleError{Op: "get", Handle: h, Err: ErrInvalidHandle}
	}

	sl := m.slots.at(int(index))
	if isFree(sl.gen) || sl.gen != gen {
		return nil, &HandleError{Op: "get", Handle: h, Err: ErrStaleHandle}
	}
	return &sl.value, nil
}

// live returns the slot index of h if h refers to an occupied slot whose
// generation matches.
func (m *Map[V, I, C]) live(h Handle) (int, bool) {
	index, gen, ok := decode[I, C](h)
	if !ok || int(index) >= m.Cap() {
		return 0, false
	}

	current := m.slots.generation(int(index))
	return int(index), !isFree(current) && current == gen
}

// Swap exchanges the contents of m and other in O(1).
func (m *Map[V, I, C]) Swap(other *Map[V, I, C]) {
	m.slots, other.slots = other.slots, m.slots
	m.free, other.free = other.free, m.free
}

// Len returns the number of live values.
func (m *Map[V, I, C]) Len() int {
	return m.slots.capacity - m.free.len()
}

// Cap returns the total number of slots.
func (m *Map[V, I, C]) Cap() int {
	return m.slots.capacity
}

// FreeLen returns the number of free slots.
func (m *Map[V, I, C]) FreeLen() int {
	return m.free.len()
}

func (m *Map[V, I, C]) Empty() bool {
	return m.Len() == 0
}

func (m *Map[V, I, C]) Full() bool {
	return m.free.len() == 0
}

// IndexIsFree reports whether slot i holds no value. Unchecked: i must be
// below Cap.
func (m *Map[V, I, C]) IndexIsFree(i I) bool {
	return m.slots.isFree(int(i))
}

// HandleForIndex returns the handle for the current occupant of slot i.
// For a free slot the result never validates. Unchecked: i must be below Cap.
func (m *Map[V, I, C]) HandleForIndex(i I) Handle {
	return Encode(i, m.slots.generation(int(i)))
}

// GetByIndex returns a pointer to the value in slot i without any handle or
// occupancy check. Unchecked: i must be below Cap; a free slot yields a
// pointer to its zero value.
func (m *Map[V, I, C]) GetByIndex(i I) *V {
	return &m.slots.at(int(i)).value
}

// All iterates over live values in slot order. The map must not be mutated
// during iteration; queue changes in a Commands buffer instead.
func (m *Map[V, I, C]) All() iter.Seq2[Handle, *V] {
	return func(yield func(Handle, *V) bool) {
		for i := 0; i < m.Cap(); i++ {
			index := I(i)
			if m.IndexIsFree(index) {
				continue
			}
			if !yield(m.HandleForIndex(index), m.GetByIndex(index)) {
				return
			}
		}
	}
}

// Handles iterates over the handles of live values in slot order.
func (m *Map[V, I, C]) Handles() iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		for h := range m.All() {
			if !yield(h) {
				return
			}
		}
	}
}

// FreeIndices iterates over the free slot indices in the order they will be
// reused.
func (m *Map[V, I, C]) FreeIndices() iter.Seq[I] {
	return func(yield func(I) bool) {
		m.free.each(yield)
	}
}
