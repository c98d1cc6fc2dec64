package idmap

const (
	blockSize = 64
)

type slot[V any, C Counter] struct {
	value V
	gen   C
}

// storage is the slot array backing a Map. Slots live in fixed-size blocks
// so growing never moves an existing slot and pointers into it stay valid.
type storage[V any, C Counter] struct {
	blocks   []*[blockSize]slot[V, C]
	capacity int
}

func (s *storage[V, C]) at(index int) *slot[V, C] {
	return &s.blocks[index/blockSize][index%blockSize]
}

// grow extends the storage to newCap slots. New slots start free.
func (s *storage[V, C]) grow(newCap int) {
	if newCap <= s.capacity {
		return
	}

	for len(s.blocks)*blockSize < newCap {
		block := new([blockSize]slot[V, C])
		for i := range block {
			block[i].gen = freeFlag[C]()
		}
		s.blocks = append(s.blocks, block)
	}
	s.capacity = newCap
}

// constructAt stores value in a free slot and marks it live with gen.
func (s *storage[V, C]) constructAt(index int, value V, gen C) {
	sl := s.at(index)
	sl.value = value
	sl.gen = gen
}

// destructAt zeroes the value and sets the free flag, keeping the counter
// bits so the next allocation of the slot moves past them.
func (s *storage[V, C]) destructAt(index int) {
	sl := s.at(index)
	var zero V
	sl.value = zero
	sl.gen |= freeFlag[C]()
}

func (s *storage[V, C]) isFree(index int) bool {
	return isFree(s.at(index).gen)
}

func (s *storage[V, C]) generation(index int) C {
	return s.at(index).gen
}

func (s *storage[V, C]) clear() {
	for _, block := range s.blocks {
		for i := range block {
			sl := &block[i]
			var zero V
			sl.value = zero
			sl.gen |= freeFlag[C]()
		}
	}
}

func (s *storage[V, C]) allocatedBlocks() int {
	return len(s.blocks)
}
