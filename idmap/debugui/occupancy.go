package debugui

import (
	"fmt"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/slots/idmap"
)

// OccupancyStats plots the live count of a map over the last frames and
// shows its CollectStats breakdown.
type OccupancyStats[V any, I idmap.Index, C idmap.Counter] struct {
	title         string
	m             *idmap.Map[V, I, C]
	historyFrames int
	liveHistory   []float32
	frameHistory  []float32
	frameIndex    int
	timer         *FrameTimer
}

// NewOccupancyStats creates a stats window keeping historyFrames samples,
// at least one.
func NewOccupancyStats[V any, I idmap.Index, C idmap.Counter](title string, m *idmap.Map[V, I, C], historyFrames int) *OccupancyStats[V, I, C] {
	historyFrames = max(historyFrames, 1)
	return &OccupancyStats[V, I, C]{
		title:         title,
		m:             m,
		historyFrames: historyFrames,
		liveHistory:   make([]float32, historyFrames),
		frameHistory:  make([]float32, historyFrames),
		timer:         NewFrameTimer(),
	}
}

// Sample records the current live count and frame time.
func (oc *OccupancyStats[V, I, C]) Sample(deltaTime float32) {
	oc.liveHistory[oc.frameIndex] = float32(oc.m.Len())
	oc.frameHistory[oc.frameIndex] = deltaTime * 1000.0
	oc.frameIndex = (oc.frameIndex + 1) % oc.historyFrames
}

func (oc *OccupancyStats[V, I, C]) Render() {
	if !imgui.BeginV(oc.title, nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	oc.Sample(oc.timer.GetDeltaTime())
	stats := oc.m.CollectStats()

	imgui.Text(fmt.Sprintf("Live: %d / %d", stats.Live, stats.Capacity))
	imgui.Text(fmt.Sprintf("Free: %d (next index %d)", stats.Free, stats.NextIndex))
	imgui.Text(fmt.Sprintf("Blocks: %d (%d slots allocated)", stats.Blocks, stats.SlotsAllocated))
	imgui.Text(fmt.Sprintf("Max Generation: %d of %d", stats.MaxGeneration, stats.GenerationSpace))

	if stats.Capacity > 0 {
		imgui.ProgressBarV(float32(stats.Live)/float32(stats.Capacity), imgui.NewVec2(-1, 0), fmt.Sprintf("%.0f%% occupied", 100*float32(stats.Live)/float32(stats.Capacity)))
	}

	imgui.Separator()
	imgui.Text("Live Count")
	imgui.PlotLinesFloatPtr("##live", &oc.liveHistory[0], int32(len(oc.liveHistory)))

	var avgFrameTime float32
	for _, ft := range oc.frameHistory {
		avgFrameTime += ft
	}
	avgFrameTime /= float32(oc.historyFrames)
	imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms", avgFrameTime))
	imgui.PlotLinesFloatPtr("##frametime", &oc.frameHistory[0], int32(len(oc.frameHistory)))

	imgui.End()
}

// History returns the live-count samples in ring order.
func (oc *OccupancyStats[V, I, C]) History() []float32 {
	return oc.liveHistory
}

type FrameTimer struct {
	lastFrameTime time.Time
}

func NewFrameTimer() *FrameTimer {
	return &FrameTimer{
		lastFrameTime: time.Now(),
	}
}

func (ft *FrameTimer) GetDeltaTime() float32 {
	now := time.Now()
	delta := float32(now.Sub(ft.lastFrameTime).Seconds())
	ft.lastFrameTime = now
	return delta
}
