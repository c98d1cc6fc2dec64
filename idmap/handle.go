package idmap

import (
	"fmt"
	"math"
	"math/bits"
)

// Index is the set of integer types usable as a slot index.
type Index interface {
	~uint8 | ~uint16 | ~uint32
}

// Counter is the set of integer types usable as a per-slot generation counter.
// The top bit of a Counter is reserved as the free flag.
type Counter interface {
	~uint8 | ~uint16 | ~uint32
}

// Handle encodes a generation (upper bits) and a slot index plus one (lower
// bits). The zero Handle never refers to a slot.
type Handle uint64

// Nil is the "no handle" sentinel.
const Nil Handle = 0

// IsNil reports whether h is the zero handle.
func (h Handle) IsNil() bool {
	return h == Nil
}

func (h Handle) String() string {
	return fmt.Sprintf("Handle(%#x)", uint64(h))
}

func bitWidth[T ~uint8 | ~uint16 | ~uint32]() uint {
	return uint(bits.OnesCount64(uint64(^T(0))))
}

// MaxCapacity returns the largest capacity an allocator indexed by I can
// have. The top index value is unusable because indices are stored plus one.
// On 32-bit platforms the result is further limited to math.MaxInt.
func MaxCapacity[I Index]() int {
	return int(min(uint64(1)<<bitWidth[I]()-1, uint64(math.MaxInt)))
}

// Encode packs a slot index and a generation into a Handle.
func Encode[I Index, C Counter](index I, generation C) Handle {
	return Handle(uint64(generation)<<bitWidth[I]() | (uint64(index) + 1))
}

// decode splits h into its slot index and generation. ok is false for the
// zero handle, for a zero index field, and for generation bits wider than C.
func decode[I Index, C Counter](h Handle) (index I, generation C, ok bool) {
	ib := bitWidth[I]()
	field := uint64(h) & (uint64(1)<<ib - 1)
	if field == 0 {
		return 0, 0, false
	}

	gen := uint64(h) >> ib
	if gen > uint64(^C(0)) {
		return 0, 0, false
	}

	return I(field - 1), C(gen), true
}

// DecodeIndex returns the slot index encoded in h.
func DecodeIndex[I Index, C Counter](h Handle) (I, bool) {
	index, _, ok := decode[I, C](h)
	return index, ok
}

// DecodeGeneration returns the generation encoded in h.
func DecodeGeneration[I Index, C Counter](h Handle) (C, bool) {
	_, gen, ok := decode[I, C](h)
	return gen, ok
}

func freeFlag[C Counter]() C {
	return C(1) << (bitWidth[C]() - 1)
}

func countMask[C Counter]() C {
	return freeFlag[C]() - 1
}

// isFree reports whether the free flag is set in a generation field.
func isFree[C Counter](gen C) bool {
	return gen&freeFlag[C]() != 0
}

// isLive reports whether gen is a value a live slot can carry: no free flag
// and not the zero counter.
func isLive[C Counter](gen C) bool {
	return gen != 0 && !isFree(gen)
}

// nextGeneration advances the counter bits of gen, wrapping inside the usable
// range and skipping zero. The result never has the free flag set.
func nextGeneration[C Counter](gen C) C {
	next := (gen&countMask[C]() + 1) & countMask[C]()
	if next == 0 {
		next = 1
	}
	return next
}

// GenerationSpace is the number of distinct live generations a slot can
// cycle through before an old handle could alias a new one.
func GenerationSpace[C Counter]() int {
	return int(countMask[C]())
}
