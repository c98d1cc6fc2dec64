package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/kamstrup/intmap"
	"github.com/plus3/slots/idmap"
	"github.com/plus3/slots/idmap/replica"
	"go.uber.org/zap"
)

// Payload is the value stored by the stress workload.
type Payload struct {
	Seq     uint64 `yaml:"seq"`
	Expires uint64 `yaml:"expires,omitempty"`
}

type (
	objectMap   = idmap.Map[Payload, uint16, uint16]
	authority   = replica.Recorder[Payload, uint16, uint16]
	mirrorTable = replica.Table[Payload, uint16, uint16]
)

const staleWindow = 256

// Result tallies what a workload run did.
type Result struct {
	Ticks           uint64        `yaml:"ticks"`
	Inserts         uint64        `yaml:"inserts"`
	Erases          uint64        `yaml:"erases"`
	Updates         uint64        `yaml:"updates"`
	Expired         uint64        `yaml:"expired"`
	Grows           uint64        `yaml:"grows"`
	InvariantChecks uint64        `yaml:"invariant_checks"`
	EventsDelivered uint64        `yaml:"events_delivered"`
	Divergent       int           `yaml:"divergent"`
	Authority       idmap.Stats   `yaml:"authority"`
	Mirror          idmap.Stats   `yaml:"mirror"`
	Replica         replica.Stats `yaml:"replica"`
}

// Workload drives random churn against an authority map and replicates every
// change into a mirror table over a lossy-ordered channel.
type Workload struct {
	cfg     WorkloadConfig
	rcfg    ReplicaConfig
	rng     *rand.Rand
	log     *zap.Logger
	auth    *authority
	mirror  *mirrorTable
	cmds    *idmap.Commands[Payload, uint16, uint16]
	live    []idmap.Handle
	pos     *intmap.Map[idmap.Handle, int]
	erased  []idmap.Handle
	record  []replica.Event[Payload]
	recordN int
	seq     uint64
	result  Result
}

func NewWorkload(cfg *Config, log *zap.Logger, recordLimit int) *Workload {
	w := &Workload{
		cfg:     cfg.Workload,
		rcfg:    cfg.Replica,
		rng:     rand.New(rand.NewPCG(cfg.Workload.Seed, cfg.Workload.Seed^0x9e3779b97f4a7c15)),
		log:     log,
		auth:    replica.NewRecorder[Payload, uint16, uint16](cfg.Workload.Capacity),
		cmds:    idmap.NewCommands[Payload, uint16, uint16](),
		pos:     intmap.New[idmap.Handle, int](cfg.Workload.Capacity),
		recordN: recordLimit,
	}
	if cfg.Replica.Enabled {
		w.mirror = replica.New[Payload, uint16, uint16](
			replica.WithCapacity(cfg.Workload.Capacity),
			replica.WithGrowStep(cfg.Replica.GrowStep),
			replica.WithLogger(log.Named("mirror")),
		)
	}
	return w
}

// Tick performs one round of random operations, expires old values,
// replicates the resulting events and periodically checks invariants.
func (w *Workload) Tick() error {
	w.result.Ticks++

	for range w.cfg.OpsPerTick {
		r := w.rng.Float64()
		switch {
		case r < w.cfg.EraseRatio && len(w.live) > 0:
			if w.despawn(w.live[w.rng.IntN(len(w.live))]) {
				w.result.Erases++
			}
		case r < w.cfg.EraseRatio+w.cfg.UpdateRatio && len(w.live) > 0:
			h := w.live[w.rng.IntN(len(w.live))]
			p, ok := w.auth.Objects().Lookup(h)
			if !ok {
				// Erased behind the workload's back, e.g. from the debug UI.
				w.forget(h)
				continue
			}
			w.seq++
			w.auth.Update(h, Payload{Seq: w.seq, Expires: p.Expires})
			w.result.Updates++
		default:
			if err := w.spawn(); err != nil {
				return err
			}
		}
	}

	if err := w.expire(); err != nil {
		return err
	}

	w.deliver(w.auth.Drain())

	if w.cfg.CheckEvery > 0 && w.result.Ticks%uint64(w.cfg.CheckEvery) == 0 {
		return w.Check()
	}
	return nil
}

func (w *Workload) spawn() error {
	objects := w.auth.Objects()
	if objects.Full() {
		step := min(w.cfg.GrowStep, idmap.MaxCapacity[uint16]()-objects.Cap())
		if step <= 0 {
			// Saturated: make room instead of growing.
			for objects.Full() && len(w.live) > 0 {
				if w.despawn(w.live[w.rng.IntN(len(w.live))]) {
					w.result.Erases++
				}
			}
		} else {
			if err := objects.Grow(step); err != nil {
				return fmt.Errorf("grow authority: %w", err)
			}
			w.result.Grows++
			w.log.Debug("grew authority map", zap.Int("capacity", objects.Cap()))
		}
	}

	w.seq++
	var expires uint64
	if w.rng.IntN(4) == 0 {
		expires = w.result.Ticks + 1 + uint64(w.rng.IntN(16))
	}
	h, err := w.auth.Spawn(Payload{Seq: w.seq, Expires: expires})
	if err != nil {
		return fmt.Errorf("spawn: %w", err)
	}

	w.pos.Put(h, len(w.live))
	w.live = append(w.live, h)
	w.result.Inserts++
	return nil
}

// despawn erases h through the recorder and stops tracking it. It reports
// false, still dropping h from tracking, if h was no longer live.
func (w *Workload) despawn(h idmap.Handle) bool {
	ok := w.auth.Despawn(h)
	w.forget(h)
	if !ok {
		return false
	}

	if len(w.erased) < staleWindow {
		w.erased = append(w.erased, h)
	} else {
		w.erased[w.rng.IntN(staleWindow)] = h
	}
	return true
}

// forget removes h from the live list.
func (w *Workload) forget(h idmap.Handle) {
	i, ok := w.pos.Get(h)
	if !ok {
		return
	}

	last := w.live[len(w.live)-1]
	w.live[i] = last
	w.pos.Put(last, i)
	w.live = w.live[:len(w.live)-1]
	w.pos.Del(h)
}

// expire removes values whose deadline passed. The map cannot be mutated
// while it is being iterated, so removals are queued and flushed after.
func (w *Workload) expire() error {
	for h, p := range w.auth.Objects().All() {
		if p.Expires != 0 && p.Expires <= w.result.Ticks {
			w.cmds.Defer(func() {
				if w.despawn(h) {
					w.result.Expired++
				}
			})
		}
	}
	_, err := w.cmds.Flush(w.auth.Objects())
	return err
}

// deliver hands events to the mirror, duplicating some and reordering them
// within fixed windows.
func (w *Workload) deliver(events []replica.Event[Payload]) {
	if n := min(len(events), w.recordN-len(w.record)); n > 0 {
		w.record = append(w.record, events[:n]...)
	}
	if w.mirror == nil || len(events) == 0 {
		return
	}

	wire := make([]replica.Event[Payload], 0, len(events))
	for _, ev := range events {
		wire = append(wire, ev)
		if w.rng.Float64() < w.rcfg.DuplicateRate {
			wire = append(wire, ev)
		}
	}

	if win := w.rcfg.ShuffleWindow; win > 1 {
		for start := 0; start < len(wire); start += win {
			chunk := wire[start:min(start+win, len(wire))]
			w.rng.Shuffle(len(chunk), func(i, j int) {
				chunk[i], chunk[j] = chunk[j], chunk[i]
			})
		}
	}

	if err := w.mirror.ApplyAll(wire); err != nil {
		w.log.Warn("mirror rejected events", zap.Error(err))
	}
	w.result.EventsDelivered += uint64(len(wire))
}

// Check verifies both maps' internal invariants, that recently erased handles
// stay stale, and counts handles on which the mirror disagrees with the
// authority.
func (w *Workload) Check() error {
	w.result.InvariantChecks++

	var errs []error
	if err := w.auth.Objects().CheckInvariants(); err != nil {
		errs = append(errs, fmt.Errorf("authority: %w", err))
	}
	for _, h := range w.erased {
		if w.auth.Objects().Validate(h) && !w.pos.Has(h) {
			errs = append(errs, fmt.Errorf("authority: erased handle %s validates", h))
		}
	}

	if w.mirror != nil {
		if err := w.mirror.Objects().CheckInvariants(); err != nil {
			errs = append(errs, fmt.Errorf("mirror: %w", err))
		}
		if d := divergence(w.auth.Objects(), w.mirror.Objects()); d != w.result.Divergent {
			w.log.Debug("mirror divergence changed", zap.Int("from", w.result.Divergent), zap.Int("to", d))
			w.result.Divergent = d
		}
	}

	return errors.Join(errs...)
}

// Result returns the tallies so far along with fresh map statistics.
func (w *Workload) Result() Result {
	res := w.result
	res.Authority = w.auth.Objects().CollectStats()
	if w.mirror != nil {
		res.Mirror = w.mirror.Objects().CollectStats()
		res.Replica = w.mirror.Stats()
	}
	return res
}

// Recorded returns the events captured for the -record script.
func (w *Workload) Recorded() []replica.Event[Payload] {
	return w.record
}

// divergence counts handles live in exactly one of a and b.
func divergence(a, b *objectMap) int {
	n := 0
	for h := range a.Handles() {
		if !b.Validate(h) {
			n++
		}
	}
	for h := range b.Handles() {
		if !a.Validate(h) {
			n++
		}
	}
	return n
}
