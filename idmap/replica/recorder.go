package replica

import "github.com/plus3/slots/idmap"

// Recorder is the authority side of replication. It owns the map that
// issues handles and records every change as an Event.
type Recorder[V any, I idmap.Index, C idmap.Counter] struct {
	objects *idmap.Map[V, I, C]
	events  []Event[V]
}

// NewRecorder creates a recorder over a map of the given capacity.
func NewRecorder[V any, I idmap.Index, C idmap.Counter](capacity int) *Recorder[V, I, C] {
	return &Recorder[V, I, C]{
		objects: idmap.New[V, I, C](capacity),
	}
}

// Spawn inserts value, growing the map if needed, and records the spawn.
func (r *Recorder[V, I, C]) Spawn(value V) (idmap.Handle, error) {
	if r.objects.Full() {
		amount := min(max(r.objects.Cap(), 1), idmap.MaxCapacity[I]()-r.objects.Cap())
		if err := r.objects.Grow(amount); err != nil {
			return idmap.Nil, err
		}
	}

	h, err := r.objects.Insert(value)
	if err != nil {
		return idmap.Nil, err
	}
	r.events = append(r.events, Event[V]{Kind: Spawn, Handle: h, Value: value})
	return h, nil
}

// Update replaces the value behind h and records the change.
func (r *Recorder[V, I, C]) Update(h idmap.Handle, value V) bool {
	p, ok := r.objects.Lookup(h)
	if !ok {
		return false
	}
	*p = value
	r.events = append(r.events, Event[V]{Kind: Update, Handle: h, Value: value})
	return true
}

// Despawn erases h and records the removal.
func (r *Recorder[V, I, C]) Despawn(h idmap.Handle) bool {
	if !r.objects.Erase(h) {
		return false
	}
	r.events = append(r.events, Event[V]{Kind: Despawn, Handle: h})
	return true
}

// Objects exposes the authoritative map for reads.
func (r *Recorder[V, I, C]) Objects() *idmap.Map[V, I, C] {
	return r.objects
}

// Drain returns the events recorded since the last Drain.
func (r *Recorder[V, I, C]) Drain() []Event[V] {
	events := r.events
	r.events = nil
	return events
}
