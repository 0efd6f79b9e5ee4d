// Package handler implements HTTP request handlers for the nodecanvas API.
//
// # Handlers
//
// SurfaceHandler serves the graph read model and the rendered frame, applies
// node and edge edits, accepts input events and converts graphs between
// formats. SocketHandler carries the same input events over a websocket and
// streams hub events back on the same connection.
//
// Middleware logs every request.
//
// # API Design
//
// All handlers follow REST conventions:
// - GET for retrieval
// - POST for creation and input
// - PUT for updates
// - DELETE for removal
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure. Invalid
// geometry and malformed input map to 400, unknown nodes and edges to 404,
// and duplicate ids or dangling edges to 409.
//
// # Server-Sent Events
//
// The /events endpoint is served by the hub and streams graph changes and
// frames to browsers that only read.
package handler
