package idmap

// Stats is a point-in-time summary of a Map.
type Stats struct {
	Capacity        int
	Live            int
	Free            int
	Blocks          int
	SlotsAllocated  int
	MaxGeneration   uint64
	GenerationSpace int
	// NextIndex is the slot the next Insert will use, or -1 when full.
	NextIndex int
}

// CollectStats walks every slot and reports occupancy and generation data.
func (m *Map[V, I, C]) CollectStats() Stats {
	stats := Stats{
		Capacity:        m.Cap(),
		Live:            m.Len(),
		Free:            m.FreeLen(),
		Blocks:          m.slots.allocatedBlocks(),
		SlotsAllocated:  m.slots.allocatedBlocks() * blockSize,
		GenerationSpace: GenerationSpace[C](),
		NextIndex:       -1,
	}

	for i := 0; i < m.Cap(); i++ {
		gen := uint64(m.slots.generation(i) & countMask[C]())
		if gen > stats.MaxGeneration {
			stats.MaxGeneration = gen
		}
	}

	for index := range m.FreeIndices() {
		stats.NextIndex = int(index)
		break
	}

	return stats
}
