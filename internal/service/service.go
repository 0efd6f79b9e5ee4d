package service

import (
	"bytes"
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"nodecanvas/internal/codec"
	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/geometry"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/metrics"
	"nodecanvas/internal/render"
	"nodecanvas/internal/repository"
	"nodecanvas/internal/surface"
)

var _ surface.Observer = metrics.Observer{}

// SurfaceService provides business logic for one surface
type SurfaceService struct {
	surface  *surface.Surface
	repo     repository.Repository
	eventBus *EventBus
	codecs   *codec.Registry
	theme    render.Theme
	clamp    func(float64) float64
	log      *zap.SugaredLogger
}

// Option configures a SurfaceService.
type Option func(*SurfaceService)

// WithRepository enables write-through persistence.
func WithRepository(repo repository.Repository) Option {
	return func(s *SurfaceService) { s.repo = repo }
}

// WithCodecs sets the import and export formats.
func WithCodecs(r *codec.Registry) Option {
	return func(s *SurfaceService) { s.codecs = r }
}

// WithTheme sets the palette frames are rendered with.
func WithTheme(t render.Theme) Option {
	return func(s *SurfaceService) { s.theme = t }
}

// WithZoomClamp limits the zoom factors input may request.
func WithZoomClamp(clamp func(float64) float64) Option {
	return func(s *SurfaceService) { s.clamp = clamp }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *SurfaceService) { s.log = l }
}

// NewSurfaceService creates a new surface service
func NewSurfaceService(sf *surface.Surface, eventBus *EventBus, opts ...Option) *SurfaceService {
	s := &SurfaceService{
		surface:  sf,
		eventBus: eventBus,
		codecs:   codec.DefaultRegistry(),
		theme:    render.DefaultPalette(),
		clamp:    func(z float64) float64 { return z },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.eventBus == nil {
		s.eventBus = NewEventBus()
	}
	if s.log == nil {
		s.log = logging.Named("service")
	}
	return s
}

// Surface returns the live surface.
func (s *SurfaceService) Surface() *surface.Surface {
	return s.surface
}

// Events returns the service's event bus.
func (s *SurfaceService) Events() *EventBus {
	return s.eventBus
}

// Codecs returns the format registry.
func (s *SurfaceService) Codecs() *codec.Registry {
	return s.codecs
}

// Restore loads the persisted graph into the surface. It reports whether
// anything was stored.
func (s *SurfaceService) Restore(ctx context.Context) (bool, error) {
	if s.repo == nil {
		return false, nil
	}
	fragment, err := s.repo.ExportFragment(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to read stored graph")
	}
	if len(fragment.Nodes) == 0 && fragment.View == nil {
		return false, nil
	}
	if err := s.surface.Load(fragment); err != nil {
		return false, errors.Wrap(err, "stored graph is invalid")
	}
	s.log.Infow("restored graph", "nodes", len(fragment.Nodes), "edges", len(fragment.Edges))
	return true, nil
}

// Graph returns the derived read model
func (s *SurfaceService) Graph() *domain.Graph {
	return s.surface.Graph()
}

// Frame renders the surface with the service theme
func (s *SurfaceService) Frame() render.Frame {
	return s.surface.Render(s.theme)
}

// ============================================================================
// Nodes
// ============================================================================

// GetNode retrieves a single node by ID
func (s *SurfaceService) GetNode(id domain.NodeID) (domain.Node, error) {
	n, ok := s.surface.Node(id)
	if !ok {
		return domain.Node{}, errors.Wrapf(errors.ErrUnknownNode, "node %d", id)
	}
	return n, nil
}

// CreateNode creates a new node
func (s *SurfaceService) CreateNode(ctx context.Context, rec domain.NodeRecord) error {
	if err := s.surface.AddNode(rec.ID, rec.Label, rec.Position()); err != nil {
		return err
	}
	if rec.Selected {
		if err := s.surface.SetSelected(rec.ID, true); err != nil {
			return err
		}
	}
	if s.repo != nil {
		if err := s.repo.CreateNode(ctx, rec); err != nil {
			_ = s.surface.RemoveNode(rec.ID)
			return err
		}
	}

	s.eventBus.Publish(Event{
		Type:    EventNodeCreated,
		Payload: rec,
	})
	return nil
}

// NodeUpdate carries the optional fields of a node edit
type NodeUpdate struct {
	Label    *string  `json:"label,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Selected *bool    `json:"selected,omitempty"`
}

// UpdateNode applies label, position and selection changes to a node
func (s *SurfaceService) UpdateNode(ctx context.Context, id domain.NodeID, u NodeUpdate) (domain.Node, error) {
	before, ok := s.surface.Node(id)
	if !ok {
		return domain.Node{}, errors.Wrapf(errors.ErrUnknownNode, "node %d", id)
	}

	if u.Label != nil {
		if err := s.surface.SetLabel(id, *u.Label); err != nil {
			return domain.Node{}, err
		}
	}
	if u.X != nil || u.Y != nil {
		pos := before.Position
		if u.X != nil {
			pos.X = *u.X
		}
		if u.Y != nil {
			pos.Y = *u.Y
		}
		if err := s.surface.MoveNode(id, pos); err != nil {
			return domain.Node{}, err
		}
	}
	if u.Selected != nil {
		if err := s.surface.SetSelected(id, *u.Selected); err != nil {
			return domain.Node{}, err
		}
	}

	after, _ := s.surface.Node(id)
	if s.repo != nil {
		if err := s.repo.UpsertNode(ctx, domain.RecordFromNode(&after)); err != nil {
			return domain.Node{}, err
		}
	}

	s.eventBus.Publish(Event{
		Type:    EventNodeUpdated,
		Payload: domain.RecordFromNode(&after),
	})
	return after, nil
}

// DeleteNode removes a node and its edges
func (s *SurfaceService) DeleteNode(ctx context.Context, id domain.NodeID) error {
	if err := s.surface.RemoveNode(id); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.DeleteNode(ctx, id); err != nil && !errors.Is(err, errors.ErrUnknownNode) {
			return err
		}
	}

	s.eventBus.Publish(Event{
		Type:    EventNodeDeleted,
		Payload: map[string]domain.NodeID{"node_id": id},
	})
	return nil
}

// ============================================================================
// Edges
// ============================================================================

// CreateEdge connects source to target
func (s *SurfaceService) CreateEdge(ctx context.Context, rec domain.EdgeRecord) error {
	if err := s.surface.AddEdge(rec.Source, rec.Target); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.CreateEdge(ctx, rec); err != nil {
			_ = s.surface.RemoveEdge(rec.Source, rec.Target)
			return err
		}
	}

	s.eventBus.Publish(Event{
		Type:    EventEdgeCreated,
		Payload: rec,
	})
	return nil
}

// DeleteEdge removes the edge from source to target
func (s *SurfaceService) DeleteEdge(ctx context.Context, rec domain.EdgeRecord) error {
	if err := s.surface.RemoveEdge(rec.Source, rec.Target); err != nil {
		return err
	}
	if s.repo != nil {
		if err := s.repo.DeleteEdge(ctx, rec); err != nil && !errors.Is(err, errors.ErrUnknownEdge) {
			return err
		}
	}

	s.eventBus.Publish(Event{
		Type:    EventEdgeDeleted,
		Payload: rec,
	})
	return nil
}

// ============================================================================
// Import / Export
// ============================================================================

// Import parses data in format and applies it with the given strategy. See
// repository.StrategyMerge and repository.StrategyReplace.
func (s *SurfaceService) Import(ctx context.Context, format string, r io.Reader, strategy string) (map[string]int, error) {
	fragment, err := s.codecs.Import(format, r)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, fragment, strategy)
}

// LoadFile imports a graph file, choosing the format from its extension.
func (s *SurfaceService) LoadFile(ctx context.Context, path, strategy string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return s.Import(ctx, codec.FormatForPath(path), f, strategy)
}

// Apply loads a fragment into the surface and the repository.
func (s *SurfaceService) Apply(ctx context.Context, fragment *domain.GraphFragment, strategy string) (map[string]int, error) {
	if strategy == "" {
		strategy = repository.StrategyMerge
	}

	previous := s.surface.Snapshot()
	var (
		next   *domain.GraphFragment
		result map[string]int
	)
	switch strategy {
	case repository.StrategyReplace:
		next = fragment
		result = map[string]int{
			"nodes_created": len(fragment.Nodes),
			"nodes_updated": 0,
			"edges_created": len(fragment.Edges),
			"edges_skipped": 0,
		}
	case repository.StrategyMerge:
		next, result = Merge(previous, fragment)
	default:
		return nil, errors.WithHintf(errors.Wrapf(repository.ErrUnknownStrategy, "%q", strategy),
			"use %q or %q", repository.StrategyMerge, repository.StrategyReplace)
	}

	if err := s.surface.Load(next); err != nil {
		return nil, err
	}
	if s.repo != nil {
		if _, err := s.repo.ImportFragment(ctx, next, repository.StrategyReplace); err != nil {
			if rerr := s.surface.Load(previous); rerr != nil {
				s.log.Errorw("failed to restore surface after import error", "error", rerr)
			}
			return nil, err
		}
	}

	s.log.Infow("graph imported", "strategy", strategy, "result", result)
	s.eventBus.Publish(Event{
		Type:    EventGraphReloaded,
		Payload: result,
	})
	return result, nil
}

// Export writes the current graph in format
func (s *SurfaceService) Export(format string, w io.Writer) error {
	return s.codecs.Export(format, s.surface.Snapshot(), w)
}

// ExportBytes is Export into memory
func (s *SurfaceService) ExportBytes(format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Export(format, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Merge overlays in onto base: nodes with a known id are replaced, new nodes
// are appended and edges already present are skipped. The view of in wins
// when it has one.
func Merge(base, in *domain.GraphFragment) (*domain.GraphFragment, map[string]int) {
	result := map[string]int{
		"nodes_created": 0,
		"nodes_updated": 0,
		"edges_created": 0,
		"edges_skipped": 0,
	}

	merged := domain.NewGraphFragment()
	index := make(map[domain.NodeID]int, len(base.Nodes)+len(in.Nodes))
	for _, n := range base.Nodes {
		index[n.ID] = len(merged.Nodes)
		merged.AddNode(n)
	}
	for _, n := range in.Nodes {
		if i, ok := index[n.ID]; ok {
			merged.Nodes[i] = n
			result["nodes_updated"]++
			continue
		}
		index[n.ID] = len(merged.Nodes)
		merged.AddNode(n)
		result["nodes_created"]++
	}

	seen := make(map[domain.EdgeRecord]struct{}, len(base.Edges)+len(in.Edges))
	for _, e := range base.Edges {
		seen[e] = struct{}{}
		merged.AddEdge(e)
	}
	for _, e := range in.Edges {
		if _, ok := seen[e]; ok {
			result["edges_skipped"]++
			continue
		}
		seen[e] = struct{}{}
		merged.AddEdge(e)
		result["edges_created"]++
	}

	merged.View = base.View
	if in.View != nil {
		merged.View = in.View
	}
	return merged, result
}

// ============================================================================
// Layout persistence
// ============================================================================

func (s *SurfaceService) persistPosition(ctx context.Context, id domain.NodeID) {
	n, ok := s.surface.Node(id)
	if !ok {
		return
	}
	pos := domain.NewNodePosition(id, n.Position)
	if s.repo != nil {
		if err := s.repo.SavePositions(ctx, []domain.NodePosition{pos}); err != nil {
			s.log.Warnw("failed to save position", "node", id, "error", err)
		}
	}
	s.eventBus.Publish(Event{
		Type:    EventPositionsUpdated,
		Payload: []domain.NodePosition{pos},
	})
}

func (s *SurfaceService) persistView(ctx context.Context) {
	view := domain.RecordFromView(s.surface.View())
	if s.repo != nil {
		if err := s.repo.SaveView(ctx, view); err != nil {
			s.log.Warnw("failed to save view", "error", err)
		}
	}
	s.eventBus.Publish(Event{
		Type:    EventViewChanged,
		Payload: view,
	})
}

// MoveNodeTo moves a node and persists its position. The terminal front end
// uses it for keyboard nudges.
func (s *SurfaceService) MoveNodeTo(ctx context.Context, id domain.NodeID, p geometry.Point) error {
	if err := s.surface.MoveNode(id, p); err != nil {
		return err
	}
	s.persistPosition(ctx, id)
	return nil
}
