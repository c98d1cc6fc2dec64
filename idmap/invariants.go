package idmap

import "fmt"

// checkInvariants panics if the map is inconsistent. It is compiled out
// unless the idmapdebug build tag is set.
func (m *Map[V, I, C]) checkInvariants() {
	if !debugChecks {
		return
	}
	if err := m.CheckInvariants(); err != nil {
		panic(err)
	}
}

// CheckInvariants verifies that every slot is either live or queued as free,
// never both and never neither, and that the free queue holds no duplicates.
// It runs in O(capacity).
func (m *Map[V, I, C]) CheckInvariants() error {
	capacity := m.slots.capacity
	if len(m.free.buf) != capacity {
		return fmt.Errorf("idmap: free queue length %d, capacity %d", len(m.free.buf), capacity)
	}
	if m.free.count < 0 || m.free.count > capacity {
		return fmt.Errorf("idmap: free count %d outside [0, %d]", m.free.count, capacity)
	}
	if capacity > 0 && m.free.tail != (m.free.head+m.free.count)%capacity {
		return fmt.Errorf("idmap: free queue tail %d, want %d", m.free.tail, (m.free.head+m.free.count)%capacity)
	}

	queued := make([]bool, capacity)
	var err error
	m.free.each(func(index I) bool {
		i := int(index)
		switch {
		case i >= capacity:
			err = fmt.Errorf("idmap: queued index %d beyond capacity %d", i, capacity)
		case queued[i]:
			err = fmt.Errorf("idmap: index %d queued twice", i)
		case !m.slots.isFree(i):
			err = fmt.Errorf("idmap: live slot %d is queued as free", i)
		}
		if err != nil {
			return false
		}
		queued[i] = true
		return true
	})
	if err != nil {
		return err
	}

	for i := 0; i < capacity; i++ {
		gen := m.slots.generation(i)
		if isFree(gen) {
			if !queued[i] {
				return fmt.Errorf("idmap: free slot %d missing from free queue", i)
			}
			continue
		}
		if !isLive(gen) {
			return fmt.Errorf("idmap: live slot %d has generation zero", i)
		}
	}
	return nil
}
