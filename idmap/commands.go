package idmap

import (
	"errors"

	"github.com/kamstrup/intmap"
)

// Commands buffers mutations of a Map so they can be recorded while the map
// is being iterated and applied afterwards with Flush.
type Commands[V any, I Index, C Counter] struct {
	inserts   []V
	insertAts []insertAtCommand[V]
	erases    []Handle
	defers    []func()
	erased    *intmap.Set[Handle]
}

type insertAtCommand[V any] struct {
	handle Handle
	value  V
}

// NewCommands creates an empty command buffer for maps of the given shape.
func NewCommands[V any, I Index, C Counter]() *Commands[V, I, C] {
	return &Commands[V, I, C]{
		erased: intmap.NewSet[Handle](64),
	}
}

// Insert queues an insert of value.
func (c *Commands[V, I, C]) Insert(value V) {
	c.inserts = append(c.inserts, value)
}

// InsertAt queues an insert of value at the exact handle h.
func (c *Commands[V, I, C]) InsertAt(h Handle, value V) {
	c.insertAts = append(c.insertAts, insertAtCommand[V]{handle: h, value: value})
}

// Erase queues an erase of h.
func (c *Commands[V, I, C]) Erase(h Handle) {
	c.erases = append(c.erases, h)
}

// Defer queues fn to run after all other queued commands.
func (c *Commands[V, I, C]) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Pending returns the number of queued commands.
func (c *Commands[V, I, C]) Pending() int {
	return len(c.inserts) + len(c.insertAts) + len(c.erases) + len(c.defers)
}

// Flush applies the queued commands to m and resets the buffer. Erases run
// first, then explicit-handle inserts, then plain inserts, then deferred
// functions. An InsertAt of a handle erased in the same flush is not applied
// and is reported as a *HandleError wrapping ErrErasedInFlush; call InsertAt
// on the map after Flush to reuse such a handle. Flush returns the handles of
// the plain inserts in queue order, Nil for any that failed, together with
// every error encountered.
func (c *Commands[V, I, C]) Flush(m *Map[V, I, C]) ([]Handle, error) {
	var errs []error

	for _, h := range c.erases {
		if m.Erase(h) {
			c.erased.Add(h)
		}
	}

	for _, cmd := range c.insertAts {
		if c.erased.Has(cmd.handle) {
			errs = append(errs, &HandleError{Op: "insert", Handle: cmd.handle, Err: ErrErasedInFlush})
			continue
		}
		if err := m.InsertAt(cmd.handle, cmd.value); err != nil {
			errs = append(errs, err)
		}
	}

	var handles []Handle
	if len(c.inserts) > 0 {
		handles = make([]Handle, len(c.inserts))
	}
	for i, value := range c.inserts {
		h, err := m.Insert(value)
		if err != nil {
			errs = append(errs, err)
		}
		handles[i] = h
	}

	for _, fn := range c.defers {
		fn()
	}

	clear(c.inserts)
	clear(c.insertAts)
	c.inserts = c.inserts[:0]
	c.insertAts = c.insertAts[:0]
	c.erases = c.erases[:0]
	c.defers = c.defers[:0]
	c.erased.Clear()

	return handles, errors.Join(errs...)
}
