package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Routes registers the API, stream and metrics endpoints.
func Routes(mux *http.ServeMux, h *SurfaceHandler, ws *SocketHandler, events http.Handler) {
	// Read model and frames
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/frame", h.GetFrame)

	// Nodes
	mux.HandleFunc("GET /api/nodes", h.ListNodes)
	mux.HandleFunc("POST /api/nodes", h.CreateNode)
	mux.HandleFunc("GET /api/nodes/{id}", h.GetNode)
	mux.HandleFunc("PUT /api/nodes/{id}", h.UpdateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", h.DeleteNode)

	// Edges
	mux.HandleFunc("GET /api/edges", h.ListEdges)
	mux.HandleFunc("POST /api/edges", h.CreateEdge)
	mux.HandleFunc("DELETE /api/edges/{source}/{target}", h.DeleteEdge)

	// Input
	mux.HandleFunc("POST /api/input", h.PostInput)
	mux.Handle("GET /ws", ws)

	// Import/Export
	mux.HandleFunc("GET /api/formats", h.GetFormats)
	mux.HandleFunc("POST /api/import/{format}", h.Import)
	mux.HandleFunc("GET /api/export/{format}", h.Export)

	// Streams and metrics
	mux.Handle("GET /events", events)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
}

// NewRouter builds the complete HTTP handler with request logging.
func NewRouter(h *SurfaceHandler, ws *SocketHandler, events http.Handler, log *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	Routes(mux, h, ws, events)
	return Logging(log, mux)
}
