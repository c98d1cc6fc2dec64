// Package ebiten runs debugui windows on top of an Ebiten game loop.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/slots/idmap/debugui"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// Game is an ebiten.Game that calls Tick once per update and draws an
// overlay of debugui windows on top of whatever Render draws.
type Game struct {
	Backend ImguiBackend
	Overlay *debugui.Overlay
	// Tick advances the inspected application; may be nil.
	Tick func() error
	// Render draws the application below the overlay; may be nil.
	Render func(screen *ebiten.Image)
}

func (g *Game) Update() error {
	g.Backend.BeginFrame()
	defer g.Backend.EndFrame()

	if g.Tick != nil {
		if err := g.Tick(); err != nil {
			return err
		}
	}
	g.Overlay.Render()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.Render != nil {
		g.Render(screen)
	}
	g.Backend.Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.Backend.Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}

// Run opens a window titled title and blocks until it is closed.
func Run(title string, width, height int, overlay *debugui.Overlay, tick func() error) error {
	backend := ebitenbackend.NewEbitenBackend()
	backend.CreateWindow(title, width, height)
	imgui.CurrentIO().SetIniFilename("")

	game := &Game{
		Backend: ImguiBackend{EbitenBackend: backend},
		Overlay: overlay,
		Tick:    tick,
	}
	return ebiten.RunGame(game)
}
