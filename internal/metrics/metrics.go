// Package metrics exposes surface activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
)

var (
	// DragsStarted counts drag sessions created by a first pointer move
	DragsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nodecanvas_drags_started_total",
			Help: "Total number of drag sessions started",
		},
	)

	// DragsEnded counts drag sessions by how they ended
	DragsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodecanvas_drags_ended_total",
			Help: "Total number of drag sessions ended, by outcome",
		},
		[]string{"outcome"},
	)

	// EdgesRerouted counts edge path recomputations
	EdgesRerouted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nodecanvas_edges_rerouted_total",
			Help: "Total number of edge paths recomputed",
		},
	)

	// FrameSeconds tracks render pass duration
	FrameSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodecanvas_frame_seconds",
			Help:    "Duration of a render pass",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)

	// GraphSize tracks the node and edge counts seen by the last frame
	GraphSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodecanvas_graph_size",
			Help: "Number of nodes and edges on the surface",
		},
		[]string{"kind"},
	)

	// Rejected counts operations refused with an input error
	Rejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodecanvas_rejected_total",
			Help: "Total number of rejected surface operations",
		},
		[]string{"op", "reason"},
	)

	// InputEvents counts input events delivered by hosts
	InputEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodecanvas_input_events_total",
			Help: "Total number of input events received, by type",
		},
		[]string{"type"},
	)

	// StreamClients tracks connected SSE and websocket clients
	StreamClients = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nodecanvas_stream_clients",
			Help: "Number of connected streaming clients",
		},
		[]string{"transport"},
	)
)

func init() {
	prometheus.MustRegister(DragsStarted)
	prometheus.MustRegister(DragsEnded)
	prometheus.MustRegister(EdgesRerouted)
	prometheus.MustRegister(FrameSeconds)
	prometheus.MustRegister(GraphSize)
	prometheus.MustRegister(Rejected)
	prometheus.MustRegister(InputEvents)
	prometheus.MustRegister(StreamClients)
}

// Observer records surface activity into the package metrics. It satisfies
// surface.Observer.
type Observer struct{}

func (Observer) DragStarted(domain.NodeID) {
	DragsStarted.Inc()
}

func (Observer) DragEnded(_ domain.NodeID, cancelled bool) {
	outcome := "dropped"
	if cancelled {
		outcome = "cancelled"
	}
	DragsEnded.WithLabelValues(outcome).Inc()
}

func (Observer) EdgesRerouted(n int) {
	EdgesRerouted.Add(float64(n))
}

func (Observer) FrameRendered(elapsed time.Duration, nodes, edges int) {
	FrameSeconds.Observe(elapsed.Seconds())
	GraphSize.WithLabelValues("nodes").Set(float64(nodes))
	GraphSize.WithLabelValues("edges").Set(float64(edges))
}

func (Observer) Rejected(op string, err error) {
	Rejected.WithLabelValues(op, Reason(err)).Inc()
}

// Reason maps an error to a low-cardinality label.
func Reason(err error) string {
	switch {
	case errors.Is(err, errors.ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, errors.ErrUnknownNode):
		return "unknown_node"
	case errors.Is(err, errors.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, errors.ErrDanglingEdge):
		return "dangling_edge"
	case errors.Is(err, errors.ErrUnknownEdge):
		return "unknown_edge"
	default:
		return "other"
	}
}
