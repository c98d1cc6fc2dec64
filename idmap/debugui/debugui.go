// Package debugui provides Dear ImGui windows for inspecting idmap.Map
// instances at runtime: a slot browser and an occupancy graph.
package debugui

// Window is anything that draws a Dear ImGui window each frame.
type Window interface {
	Render()
}

// Overlay renders a fixed set of windows, in registration order, once per
// frame between the backend's BeginFrame and EndFrame.
type Overlay struct {
	windows []Window
}

// NewOverlay creates an overlay drawing the given windows.
func NewOverlay(windows ...Window) *Overlay {
	return &Overlay{windows: windows}
}

// Add registers another window.
func (o *Overlay) Add(w Window) {
	o.windows = append(o.windows, w)
}

// Render draws every registered window.
func (o *Overlay) Render() {
	for _, w := range o.windows {
		w.Render()
	}
}

// WindowFunc adapts a plain function to the Window interface.
type WindowFunc func()

func (f WindowFunc) Render() {
	f()
}
