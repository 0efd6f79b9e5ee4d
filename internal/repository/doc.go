// Package repository defines the persistence interface for nodecanvas.
//
// A surface keeps its graph in memory; the repository is where the layout
// survives restarts. Only persistent fields are stored: node id, label,
// world position and selection, the edge endpoint pairs, and the view's pan
// and zoom. Widths, ports and edge paths are derived on load.
//
// # SQLite Implementation
//
// The sqlite subpackage implements Repository on the pure-Go modernc.org
// SQLite driver. Edges reference nodes with ON DELETE CASCADE, so deleting a
// node removes its edges. ImportFragment and SavePositions run in a single
// transaction.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
