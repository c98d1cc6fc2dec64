package idmap_test

import (
	"testing"

	"github.com/plus3/slots/idmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsDeferMutationDuringIteration(t *testing.T) {
	m := idmap.New[int, uint8, uint8](8)
	for i := range 5 {
		mustInsert(t, m, i)
	}

	cmds := idmap.NewCommands[int, uint8, uint8]()
	for h, v := range m.All() {
		if *v%2 == 0 {
			cmds.Erase(h)
			cmds.Insert(*v * 10)
		}
	}
	assert.Equal(t, 6, cmds.Pending())
	assert.Equal(t, 5, m.Len())

	handles, err := cmds.Flush(m)
	require.NoError(t, err)
	require.Len(t, handles, 3)
	assert.Equal(t, 0, cmds.Pending())

	var values []int
	for _, v := range m.All() {
		values = append(values, *v)
	}
	// Never-used slots are queued ahead of the ones just erased.
	assert.ElementsMatch(t, []int{0, 1, 20, 3, 40}, values)
	for i, want := range []int{0, 20, 40} {
		assert.Equal(t, want, *m.Get(handles[i]))
		assert.Equal(t, uint8(5+i), indexOf(t, handles[i]))
	}
}

func TestCommandsFlushOrder(t *testing.T) {
	m := idmap.New[string, uint8, uint8](2)
	h := mustInsert(t, m, "old")

	var log []string
	cmds := idmap.NewCommands[string, uint8, uint8]()
	cmds.Defer(func() { log = append(log, "defer") })
	cmds.Insert("new")
	cmds.Erase(h)
	cmds.InsertAt(h, "resurrected")

	handles, err := cmds.Flush(m)
	assert.Equal(t, []string{"defer"}, log)
	assert.False(t, m.Validate(h))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "new", *m.Get(handles[0]))

	// The replay of the erased handle is reported, not silently dropped.
	require.ErrorIs(t, err, idmap.ErrErasedInFlush)
	var herr *idmap.HandleError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, h, herr.Handle)
	assert.Equal(t, "insert", herr.Op)

	// Reusing it directly after the flush works.
	require.NoError(t, m.InsertAt(h, "resurrected"))
	assert.Equal(t, "resurrected", *m.Get(h))
}

func TestCommandsCollectErrors(t *testing.T) {
	m := idmap.New[string, uint8, uint8](1)
	h := mustInsert(t, m, "taken")

	cmds := idmap.NewCommands[string, uint8, uint8]()
	cmds.InsertAt(h, "clash")
	cmds.Insert("no room")

	handles, err := cmds.Flush(m)
	assert.ErrorIs(t, err, idmap.ErrSlotOccupied)
	assert.ErrorIs(t, err, idmap.ErrCapacityExceeded)
	assert.Equal(t, []idmap.Handle{idmap.Nil}, handles)
	assert.Equal(t, "taken", *m.Get(h))

	// The buffer is reusable after a failed flush.
	cmds.Erase(h)
	handles, err = cmds.Flush(m)
	require.NoError(t, err)
	assert.Nil(t, handles)
	assert.True(t, m.Empty())
}
