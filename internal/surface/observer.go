package surface

import (
	"time"

	"nodecanvas/internal/domain"
)

// Observer is notified of surface activity. Calls may happen with the
// surface lock held and must not call back into the surface.
type Observer interface {
	DragStarted(id domain.NodeID)
	DragEnded(id domain.NodeID, cancelled bool)
	EdgesRerouted(n int)
	FrameRendered(elapsed time.Duration, nodes, edges int)
	Rejected(op string, err error)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) DragStarted(domain.NodeID)             {}
func (NopObserver) DragEnded(domain.NodeID, bool)         {}
func (NopObserver) EdgesRerouted(int)                     {}
func (NopObserver) FrameRendered(time.Duration, int, int) {}
func (NopObserver) Rejected(string, error)                {}
