// Package service coordinates a live surface with its persistence and its
// listeners.
//
// # Services
//
// SurfaceService owns the mapping between the HTTP, websocket and terminal
// front ends and one surface.Surface. Graph edits are applied to the surface
// first and then written through to the repository; an edit the repository
// refuses is rolled back on the surface. Pointer, pan and zoom input arrives
// as InputEvent values and is applied by Dispatch.
//
// Layout is persisted lazily: node positions are saved when a drag ends or is
// cancelled, and the view when it is panned or zoomed.
//
// # Event System
//
// Every change is published on an EventBus. The server forwards the bus to
// the stream hub so connected clients receive graph changes and, after input,
// the freshly rendered frame.
//
// # Design Principles
//
// - The surface is the source of truth while the process runs
// - The repository is optional; without one the service is memory-only
// - Context-aware for cancellation and timeouts
package service
