package main

import (
	"context"
	"errors"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/slots/idmap"
	"github.com/plus3/slots/idmap/debugui"
	debugui_ebiten "github.com/plus3/slots/idmap/debugui/ebiten"
)

// runUI shows the authority and mirror maps in a debug window, ticking the
// workload once per frame until ctx expires or the window is closed.
func runUI(ctx context.Context, w *Workload, tick func() error) error {
	// Erasing from the authority must go through the recorder so the mirror
	// sees the despawn.
	authSlots := debugui.NewSlotBrowser("Authority Slots", w.auth.Objects(), 100)
	authSlots.OnErase = func(h idmap.Handle) {
		if w.despawn(h) {
			w.result.Erases++
		}
	}

	overlay := debugui.NewOverlay(
		authSlots,
		debugui.NewOccupancyStats("Authority Occupancy", w.auth.Objects(), 240),
	)
	if w.mirror != nil {
		overlay.Add(debugui.NewSlotBrowser("Mirror Slots", w.mirror.Objects(), 100))
		overlay.Add(debugui.NewOccupancyStats("Mirror Occupancy", w.mirror.Objects(), 240))
	}

	err := debugui_ebiten.Run("idmap-stress", 1280, 720, overlay, func() error {
		if ctx.Err() != nil {
			return ebiten.Termination
		}
		return tick()
	})
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}
