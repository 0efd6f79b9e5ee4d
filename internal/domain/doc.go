// Package domain defines the core types of the nodecanvas graph surface.
//
// This package contains the node and edge models and the value objects used
// to persist and serve them. It has no dependencies beyond the geometry and
// errors packages.
//
// # Core Types
//
// Node is a labeled box with a world-space position. Its width is derived
// from the label by Sizing on every render pass and is never persisted.
// Ports are not stored: LeftPort and RightPort are computed from the node's
// current position and size.
//
// Edge connects a source node's right port to a target node's left port.
// Its Path is a world-space cache. Each node carries a geometry revision, and
// an edge remembers the revisions it was routed against, so a path is only
// recomputed when one of its own endpoints moved or resized.
//
// Router decides the waypoints between the two ports. StraightRouter draws one
// segment; OrthogonalRouter bends at the horizontal midpoint.
//
// ViewState is the pan and zoom of a surface. Combined with the container
// offset of the current frame it yields a geometry.Transform.
//
// # Records
//
// NodeRecord, EdgeRecord and ViewRecord are the persisted forms used by
// GraphFragment for import, export and the SQLite repository. Graph is the
// derived read model served over HTTP.
//
// # Design Principles
//
// - Derived values (width, ports, paths) are recomputed, never authoritative
// - Connectivity is by id; nothing holds a pointer into another node
// - No database or transport dependencies
package domain
