package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"nodecanvas/internal/codec"
	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/repository"
	"nodecanvas/internal/service"
)

// maxBodyBytes bounds request bodies, imports included.
const maxBodyBytes = 8 << 20

// SurfaceHandler handles surface API requests
type SurfaceHandler struct {
	svc *service.SurfaceService
	log *zap.SugaredLogger
}

// NewSurfaceHandler creates a new surface handler
func NewSurfaceHandler(svc *service.SurfaceService) *SurfaceHandler {
	return &SurfaceHandler{svc: svc, log: logging.Named("http")}
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GetGraph returns the derived read model
func (h *SurfaceHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Graph(), http.StatusOK)
}

// GetFrame returns the draw commands of one render pass
func (h *SurfaceHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Frame(), http.StatusOK)
}

// ListNodes returns all nodes with their derived sizes
func (h *SurfaceHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Graph().Nodes, http.StatusOK)
}

// GetNode returns a single node
func (h *SurfaceHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r, "id")
	if !ok {
		return
	}
	node, err := h.svc.GetNode(id)
	if err != nil {
		h.writeServiceError(w, "Failed to get node", err)
		return
	}
	h.writeJSON(w, graphNode(node), http.StatusOK)
}

// CreateNode creates a new node
func (h *SurfaceHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var rec domain.NodeRecord
	if !h.decode(w, r, &rec) {
		return
	}
	if err := h.svc.CreateNode(r.Context(), rec); err != nil {
		h.writeServiceError(w, "Failed to create node", err)
		return
	}
	node, _ := h.svc.GetNode(rec.ID)
	h.writeJSON(w, graphNode(node), http.StatusCreated)
}

// UpdateNode changes the label, position or selection of a node
func (h *SurfaceHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r, "id")
	if !ok {
		return
	}
	var update service.NodeUpdate
	if !h.decode(w, r, &update) {
		return
	}
	node, err := h.svc.UpdateNode(r.Context(), id, update)
	if err != nil {
		h.writeServiceError(w, "Failed to update node", err)
		return
	}
	h.writeJSON(w, graphNode(node), http.StatusOK)
}

// DeleteNode removes a node and its edges
func (h *SurfaceHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.nodeID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteNode(r.Context(), id); err != nil {
		h.writeServiceError(w, "Failed to delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEdges returns all edges with their current paths
func (h *SurfaceHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Graph().Edges, http.StatusOK)
}

// CreateEdge connects two nodes
func (h *SurfaceHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var rec domain.EdgeRecord
	if !h.decode(w, r, &rec) {
		return
	}
	if err := h.svc.CreateEdge(r.Context(), rec); err != nil {
		h.writeServiceError(w, "Failed to create edge", err)
		return
	}
	h.writeJSON(w, rec, http.StatusCreated)
}

// DeleteEdge removes the edge from {source} to {target}
func (h *SurfaceHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	source, ok := h.nodeID(w, r, "source")
	if !ok {
		return
	}
	target, ok := h.nodeID(w, r, "target")
	if !ok {
		return
	}
	if err := h.svc.DeleteEdge(r.Context(), domain.EdgeRecord{Source: source, Target: target}); err != nil {
		h.writeServiceError(w, "Failed to delete edge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostInput applies one input event
func (h *SurfaceHandler) PostInput(w http.ResponseWriter, r *http.Request) {
	var ev service.InputEvent
	if !h.decode(w, r, &ev) {
		return
	}
	res, err := h.svc.Dispatch(r.Context(), ev)
	if err != nil {
		h.writeServiceError(w, "Failed to apply input", err)
		return
	}
	h.writeJSON(w, res, http.StatusOK)
}

// Import reads a graph in {format}; ?strategy=merge|replace, default merge
func (h *SurfaceHandler) Import(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	strategy := r.URL.Query().Get("strategy")
	result, err := h.svc.Import(r.Context(), format, http.MaxBytesReader(w, r.Body, maxBodyBytes), strategy)
	if err != nil {
		h.writeServiceError(w, "Failed to import graph", err)
		return
	}
	h.writeJSON(w, map[string]interface{}{
		"status":   "imported",
		"strategy": strategyOrDefault(strategy),
		"result":   result,
	}, http.StatusOK)
}

// Export writes the graph in {format}
func (h *SurfaceHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	// Encode in memory so an error can still produce a JSON response.
	data, err := h.svc.ExportBytes(format)
	if err != nil {
		h.writeServiceError(w, "Failed to export graph", err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", "attachment; filename=graph."+format)
	if _, err := w.Write(data); err != nil {
		h.log.Debugw("export write failed", "format", format, "error", err)
	}
}

// GetFormats lists the supported import and export formats
func (h *SurfaceHandler) GetFormats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string][]string{
		"import": h.svc.Codecs().ImportFormats(),
		"export": h.svc.Codecs().ExportFormats(),
	}, http.StatusOK)
}

// Helper methods

func (h *SurfaceHandler) nodeID(w http.ResponseWriter, r *http.Request, param string) (domain.NodeID, bool) {
	raw := r.PathValue(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.writeError(w, "Invalid node ID", "expected an integer, got "+strconv.Quote(raw), http.StatusBadRequest)
		return 0, false
	}
	return domain.NodeID(id), true
}

func (h *SurfaceHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *SurfaceHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	writeJSON(w, h.log, data, statusCode)
}

func (h *SurfaceHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(w, h.log, ErrorResponse{Error: error, Details: details}, statusCode)
}

// writeServiceError maps surface and repository errors to status codes.
func (h *SurfaceHandler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw(msg, "error", err)
	}
	details := err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		details += " (" + hints[0] + ")"
	}
	h.writeError(w, msg, details, status)
}

// StatusFor returns the HTTP status for an error from the service layer.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrUnknownNode), errors.Is(err, errors.ErrUnknownEdge):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrDuplicateID), errors.Is(err, errors.ErrDanglingEdge):
		return http.StatusConflict
	case errors.Is(err, errors.ErrInvalidGeometry), errors.Is(err, service.ErrUnknownInput):
		return http.StatusBadRequest
	case errors.IsAny(err, codec.ErrUnknownFormat, codec.ErrMalformed, repository.ErrUnknownStrategy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warnw("failed to encode JSON", "error", err)
	}
}

func graphNode(n domain.Node) domain.GraphNode {
	return domain.GraphNode{
		ID:       n.ID,
		Label:    n.Label,
		X:        n.Position.X,
		Y:        n.Position.Y,
		Width:    n.Width,
		Height:   n.Height,
		Selected: n.Selected,
	}
}

func strategyOrDefault(s string) string {
	if s == "" {
		return repository.StrategyMerge
	}
	return s
}

func contentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "yaml", "yml":
		return "application/x-yaml"
	default:
		return "application/json"
	}
}
