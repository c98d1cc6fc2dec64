package idmap

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleEncoding(t *testing.T) {
	h := Encode(uint8(0), uint8(1))
	assert.Equal(t, Handle(0x101), h)

	index, gen, ok := decode[uint8, uint8](h)
	assert.True(t, ok)
	assert.Equal(t, uint8(0), index)
	assert.Equal(t, uint8(1), gen)
}

func TestHandleEncodingWidths(t *testing.T) {
	t.Run("uint8/uint8", func(t *testing.T) {
		for _, tt := range []struct {
			index uint8
			gen   uint8
		}{{0, 0}, {0, 1}, {254, 127}, {17, 0x80}, {254, 0xFF}} {
			h := Encode(tt.index, tt.gen)
			assert.False(t, h.IsNil())
			index, gen, ok := decode[uint8, uint8](h)
			assert.True(t, ok)
			assert.Equal(t, tt.index, index)
			assert.Equal(t, tt.gen, gen)
		}
	})

	t.Run("uint16/uint8", func(t *testing.T) {
		h := Encode(uint16(0x1234), uint8(0x56))
		assert.Equal(t, Handle(0x56_1235), h)
		index, gen, ok := decode[uint16, uint8](h)
		assert.True(t, ok)
		assert.Equal(t, uint16(0x1234), index)
		assert.Equal(t, uint8(0x56), gen)
	})

	t.Run("uint32/uint32", func(t *testing.T) {
		tests := []struct {
			index uint32
			gen   uint32
		}{
			{0, 0},
			{0xFFFFFFFE, 0x7FFFFFFF},
			{1, 0xFFFFFFFF},
			{0x12345678, 0x1ABCDEF0},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("index=%d,gen=%d", tt.index, tt.gen), func(t *testing.T) {
				h := Encode(tt.index, tt.gen)
				index, ok := DecodeIndex[uint32, uint32](h)
				assert.True(t, ok)
				assert.Equal(t, tt.index, index)
				gen, ok := DecodeGeneration[uint32, uint32](h)
				assert.True(t, ok)
				assert.Equal(t, tt.gen, gen)
			})
		}
	})
}

func TestDecodeRejectsMalformedHandles(t *testing.T) {
	// The zero handle never decodes to a wrapped index.
	_, _, ok := decode[uint8, uint8](Nil)
	assert.False(t, ok)

	// A zero index field with a non-zero generation is still not a slot.
	_, _, ok = decode[uint8, uint8](Handle(0x300))
	assert.False(t, ok)

	// Generation bits wider than the counter type.
	_, _, ok = decode[uint8, uint8](Handle(0x1_0001))
	assert.False(t, ok)
}

func TestMaxCapacity(t *testing.T) {
	assert.Equal(t, 255, MaxCapacity[uint8]())
	assert.Equal(t, 65535, MaxCapacity[uint16]())
	assert.Equal(t, int(min(uint64(1<<32-1), uint64(math.MaxInt))), MaxCapacity[uint32]())
	assert.Positive(t, MaxCapacity[uint32]())
}

func TestFreeFlag(t *testing.T) {
	assert.Equal(t, uint8(0x80), freeFlag[uint8]())
	assert.Equal(t, uint16(0x8000), freeFlag[uint16]())
	assert.Equal(t, uint8(0x7F), countMask[uint8]())

	assert.True(t, isFree(uint8(0x80)))
	assert.True(t, isFree(uint8(0x85)))
	assert.False(t, isFree(uint8(0x7F)))

	assert.False(t, isLive(uint8(0)))
	assert.False(t, isLive(uint8(0x80)))
	assert.True(t, isLive(uint8(1)))

	assert.Equal(t, 127, GenerationSpace[uint8]())
}

func TestNextGeneration(t *testing.T) {
	// A never-used slot carries only the free flag.
	assert.Equal(t, uint8(1), nextGeneration(freeFlag[uint8]()))
	assert.Equal(t, uint8(2), nextGeneration(uint8(1)))
	// Freed slots keep their counter bits under the flag.
	assert.Equal(t, uint8(6), nextGeneration(uint8(0x85)))
	// Wrapping skips zero and never sets the free flag.
	assert.Equal(t, uint8(1), nextGeneration(uint8(0x7F)))
	assert.Equal(t, uint8(1), nextGeneration(uint8(0xFF)))
	assert.Equal(t, uint16(1), nextGeneration(uint16(0xFFFF)))

	gen := freeFlag[uint8]()
	for i := 0; i < 1000; i++ {
		gen = nextGeneration(gen | freeFlag[uint8]())
		assert.True(t, isLive(gen), "generation %#x after %d steps", gen, i)
	}
}

func TestHandleString(t *testing.T) {
	assert.Equal(t, "Handle(0x202)", Encode(uint8(1), uint8(2)).String())
	assert.True(t, Nil.IsNil())
}
