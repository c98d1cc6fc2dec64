// Package replica mirrors a set of objects owned by a remote authority. The
// authority allocates handles with its own idmap.Map; a Table applies the
// authority's spawn, update and despawn events to a local map so both sides
// address the same object with the same handle.
package replica

import (
	"errors"
	"fmt"

	"github.com/kamstrup/intmap"
	"github.com/plus3/slots/idmap"
	"go.uber.org/zap"
)

// ErrUnknownKind is returned for events with an unrecognised Kind.
var ErrUnknownKind = errors.New("replica: unknown event kind")

// Stats counts what a Table did with the events it was given.
type Stats struct {
	Spawned    int
	Updated    int
	Despawned  int
	Evicted    int
	Dropped    int
	Tombstoned int
	Grown      int
}

type options struct {
	capacity int
	growStep int
	logger   *zap.Logger
}

// Option configures a Table.
type Option func(*options)

// WithCapacity sets the initial number of slots.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithGrowStep sets the granularity used when a spawn lands beyond the
// current capacity.
func WithGrowStep(n int) Option {
	return func(o *options) { o.growStep = n }
}

// WithLogger sets the logger used for dropped and evicted events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Table applies an authority's events to a local map.
//
// Events may arrive duplicated or out of order. A spawn whose generation is
// not newer than the slot's last generation is dropped, a spawn with a newer
// generation evicts the current occupant, and a despawn that arrives before
// its spawn is remembered as a tombstone so the late spawn is ignored.
// Generations are compared with wraparound (serial number) arithmetic.
type Table[V any, I idmap.Index, C idmap.Counter] struct {
	objects    *idmap.Map[V, I, C]
	tombstones *intmap.Set[idmap.Handle]
	growStep   int
	log        *zap.Logger
	stats      Stats
}

// New creates an empty Table.
func New[V any, I idmap.Index, C idmap.Counter](opts ...Option) *Table[V, I, C] {
	o := options{
		capacity: 64,
		growStep: 64,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.growStep < 1 {
		o.growStep = 1
	}

	return &Table[V, I, C]{
		objects:    idmap.New[V, I, C](o.capacity),
		tombstones: intmap.NewSet[idmap.Handle](64),
		growStep:   o.growStep,
		log:        o.logger,
	}
}

// Apply applies a single event. Duplicate and out-of-order events are
// dropped without error; only malformed events are reported.
func (t *Table[V, I, C]) Apply(ev Event[V]) error {
	switch ev.Kind {
	case Spawn:
		return t.spawn(ev.Handle, ev.Value)
	case Update:
		t.update(ev.Handle, ev.Value)
		return nil
	case Despawn:
		t.despawn(ev.Handle)
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, ev.Kind)
	}
}

// ApplyAll applies events in order and returns every error encountered.
func (t *Table[V, I, C]) ApplyAll(events []Event[V]) error {
	var errs []error
	for _, ev := range events {
		if err := t.Apply(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Table[V, I, C]) spawn(h idmap.Handle, value V) error {
	index, ok := idmap.DecodeIndex[I, C](h)
	if !ok {
		return &idmap.HandleError{Op: "spawn", Handle: h, Err: idmap.ErrInvalidHandle}
	}
	gen, _ := idmap.DecodeGeneration[I, C](h)
	if c := int(gen); c == 0 || c > idmap.GenerationSpace[C]() {
		return &idmap.HandleError{Op: "spawn", Handle: h, Err: idmap.ErrInvalidHandle}
	}

	if t.tombstones.Del(h) {
		t.drop("spawn cancelled by earlier despawn", h)
		return nil
	}

	if err := t.ensureIndex(int(index)); err != nil {
		return &idmap.HandleError{Op: "spawn", Handle: h, Err: err}
	}

	current := t.objects.HandleForIndex(index)
	last := t.counter(current)
	if !t.objects.IndexIsFree(index) {
		if !t.newer(t.counter(h), last) {
			t.drop("stale spawn for occupied slot", h, zap.Stringer("current", current))
			return nil
		}
		t.objects.Erase(current)
		t.stats.Evicted++
		t.log.Debug("evicted by newer spawn", zap.Stringer("handle", h), zap.Stringer("evicted", current))
	} else if last != 0 && !t.newer(t.counter(h), last) {
		t.drop("stale spawn for freed slot", h, zap.Stringer("current", current))
		return nil
	}

	if err := t.objects.InsertAt(h, value); err != nil {
		return err
	}
	t.stats.Spawned++
	t.log.Debug("spawned", zap.Stringer("handle", h), zap.Uint64("generation", uint64(gen)))
	return nil
}

func (t *Table[V, I, C]) update(h idmap.Handle, value V) {
	p, ok := t.objects.Lookup(h)
	if !ok {
		t.drop("update for unknown object", h)
		return
	}
	*p = value
	t.stats.Updated++
}

func (t *Table[V, I, C]) despawn(h idmap.Handle) {
	if t.objects.Erase(h) {
		t.stats.Despawned++
		return
	}

	index, ok := idmap.DecodeIndex[I, C](h)
	if !ok {
		t.drop("despawn of malformed handle", h)
		return
	}

	// The spawn has not arrived yet if the handle is newer than anything
	// the slot has held.
	if int(index) >= t.objects.Cap() {
		t.tombstone(h)
		return
	}
	if last := t.counter(t.objects.HandleForIndex(index)); last == 0 || t.newer(t.counter(h), last) {
		t.tombstone(h)
		return
	}
	t.drop("despawn of dead object", h)
}

func (t *Table[V, I, C]) tombstone(h idmap.Handle) {
	t.tombstones.Add(h)
	t.stats.Tombstoned++
	t.log.Debug("despawn before spawn", zap.Stringer("handle", h))
}

// ensureIndex grows the map so index is addressable, in multiples of the
// grow step and never past the index type's limit.
func (t *Table[V, I, C]) ensureIndex(index int) error {
	capacity := t.objects.Cap()
	if index < capacity {
		return nil
	}

	need := index + 1 - capacity
	amount := (need + t.growStep - 1) / t.growStep * t.growStep
	amount = min(amount, idmap.MaxCapacity[I]()-capacity)
	if err := t.objects.Grow(amount); err != nil {
		return err
	}
	t.stats.Grown++
	t.log.Debug("grew replica table", zap.Int("from", capacity), zap.Int("to", t.objects.Cap()))
	return nil
}

func (t *Table[V, I, C]) drop(reason string, h idmap.Handle, fields ...zap.Field) {
	t.stats.Dropped++
	t.log.Debug(reason, append([]zap.Field{zap.Stringer("handle", h)}, fields...)...)
}

// counter returns the generation counter of h without the free flag.
func (t *Table[V, I, C]) counter(h idmap.Handle) int {
	gen, _ := idmap.DecodeGeneration[I, C](h)
	return int(gen) & idmap.GenerationSpace[C]()
}

// newer reports whether counter a was issued after counter b, treating the
// counter space as a circle: a is newer when it lies less than half the
// space ahead of b.
func (t *Table[V, I, C]) newer(a, b int) bool {
	space := idmap.GenerationSpace[C]()
	d := ((a-b)%space + space) % space
	return d != 0 && 2*d < space
}

// Lookup returns the local copy of the object behind h.
func (t *Table[V, I, C]) Lookup(h idmap.Handle) (*V, bool) {
	return t.objects.Lookup(h)
}

// Objects exposes the local map for iteration. Callers must not mutate it.
func (t *Table[V, I, C]) Objects() *idmap.Map[V, I, C] {
	return t.objects
}

// Len returns the number of live replicated objects.
func (t *Table[V, I, C]) Len() int {
	return t.objects.Len()
}

// PendingDespawns returns the number of despawns waiting for their spawn.
func (t *Table[V, I, C]) PendingDespawns() int {
	return t.tombstones.Len()
}

func (t *Table[V, I, C]) Stats() Stats {
	return t.stats
}

// Reset drops every object and tombstone. Capacity is kept.
func (t *Table[V, I, C]) Reset() {
	t.objects.Clear()
	t.tombstones.Clear()
	t.stats = Stats{}
}
