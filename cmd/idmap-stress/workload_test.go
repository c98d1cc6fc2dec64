package main

import (
	"path/filepath"
	"testing"

	"github.com/plus3/slots/idmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() *Config {
	cfg := defaults()
	cfg.Workload.Capacity = 16
	cfg.Workload.GrowStep = 16
	cfg.Workload.OpsPerTick = 32
	cfg.Workload.EraseRatio = 0.2
	cfg.Workload.UpdateRatio = 0.1
	cfg.Workload.CheckEvery = 1
	cfg.Replica.GrowStep = 8
	return cfg
}

func TestWorkloadInOrderMirrorConverges(t *testing.T) {
	cfg := testConfig()
	cfg.Replica.ShuffleWindow = 0
	cfg.Replica.DuplicateRate = 0

	w := NewWorkload(cfg, zaptest.NewLogger(t), 0)
	for range 200 {
		require.NoError(t, w.Tick())
	}

	res := w.Result()
	assert.Zero(t, res.Divergent)
	assert.Equal(t, res.Authority.Live, res.Mirror.Live)
	assert.Equal(t, uint64(200), res.InvariantChecks)
	assert.Positive(t, res.Grows)
	assert.Positive(t, res.Expired)

	for h, p := range w.auth.Objects().All() {
		got, ok := w.mirror.Lookup(h)
		require.True(t, ok, "handle %s missing from mirror", h)
		assert.Equal(t, *p, *got)
	}
}

func TestWorkloadReorderedDeliveryKeepsInvariants(t *testing.T) {
	cfg := testConfig()
	cfg.Replica.ShuffleWindow = 16
	cfg.Replica.DuplicateRate = 0.3

	w := NewWorkload(cfg, zaptest.NewLogger(t), 0)
	for range 200 {
		require.NoError(t, w.Tick())
	}

	res := w.Result()
	assert.Positive(t, res.Replica.Dropped)
	assert.Greater(t, res.EventsDelivered, res.Inserts+res.Erases)
}

func TestWorkloadDeterministicForSeed(t *testing.T) {
	run := func() Result {
		w := NewWorkload(testConfig(), zaptest.NewLogger(t), 0)
		for range 50 {
			require.NoError(t, w.Tick())
		}
		return w.Result()
	}

	assert.Equal(t, run(), run())
}

func TestWorkloadWithoutReplica(t *testing.T) {
	cfg := testConfig()
	cfg.Replica.Enabled = false

	w := NewWorkload(cfg, zaptest.NewLogger(t), 0)
	for range 20 {
		require.NoError(t, w.Tick())
	}
	assert.Zero(t, w.Result().EventsDelivered)
	assert.Zero(t, w.Result().Mirror.Capacity)
}

func TestRecordAndReplay(t *testing.T) {
	cfg := testConfig()
	w := NewWorkload(cfg, zaptest.NewLogger(t), 100)
	for range 10 {
		require.NoError(t, w.Tick())
	}
	require.Len(t, w.Recorded(), 100)

	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, writeScript(path, "session", w.Recorded()))

	replay, err := replayScript(path, 8, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "session", replay.Name)
	assert.Equal(t, 100, replay.Events)
	assert.Zero(t, replay.Stats.Dropped)
	assert.Equal(t, replay.Stats.Spawned-replay.Stats.Despawned, replay.Live)
}

func TestWorkloadSurvivesExternalErase(t *testing.T) {
	cfg := testConfig()
	cfg.Replica.ShuffleWindow = 0
	cfg.Replica.DuplicateRate = 0
	cfg.Workload.UpdateRatio = 0.6

	w := NewWorkload(cfg, zaptest.NewLogger(t), 0)
	for range 3 {
		require.NoError(t, w.Tick())
	}

	// Remove every value straight from the map, bypassing the recorder.
	var handles []idmap.Handle
	for h := range w.auth.Objects().Handles() {
		handles = append(handles, h)
	}
	require.NotEmpty(t, handles)
	for _, h := range handles {
		require.True(t, w.auth.Objects().Erase(h))
	}

	for range 20 {
		require.NoError(t, w.Tick())
	}

	// Every tracked handle is live, or one of the externally erased ones
	// that has not been picked yet.
	erased := make(map[idmap.Handle]bool, len(handles))
	for _, h := range handles {
		erased[h] = true
	}
	stale := 0
	for _, h := range w.live {
		if erased[h] {
			stale++
			continue
		}
		assert.True(t, w.auth.Objects().Validate(h), "tracked handle %s is dead", h)
	}
	assert.Less(t, stale, len(handles))
}

func TestWorkloadEraseThroughRecorderKeepsMirrorInSync(t *testing.T) {
	cfg := testConfig()
	cfg.Replica.ShuffleWindow = 0
	cfg.Replica.DuplicateRate = 0

	w := NewWorkload(cfg, zaptest.NewLogger(t), 0)
	for range 3 {
		require.NoError(t, w.Tick())
	}

	h := w.live[0]
	require.True(t, w.despawn(h))
	assert.False(t, w.despawn(h))
	assert.False(t, w.pos.Has(h))

	require.NoError(t, w.Tick())
	_, ok := w.mirror.Lookup(h)
	assert.False(t, ok)
	assert.Zero(t, w.Result().Divergent)
}
