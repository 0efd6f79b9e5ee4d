package repository

import (
	"context"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
)

// Repository defines the persistence interface for a surface's graph
type Repository interface {
	// Read operations
	GetNode(ctx context.Context, id domain.NodeID) (*domain.NodeRecord, error)
	ListNodes(ctx context.Context) ([]domain.NodeRecord, error)
	ListEdges(ctx context.Context) ([]domain.EdgeRecord, error)
	GetView(ctx context.Context) (*domain.ViewRecord, error)

	// Write operations
	CreateNode(ctx context.Context, node domain.NodeRecord) error
	UpsertNode(ctx context.Context, node domain.NodeRecord) error
	UpdateNodeLabel(ctx context.Context, id domain.NodeID, label string) error
	DeleteNode(ctx context.Context, id domain.NodeID) error
	CreateEdge(ctx context.Context, edge domain.EdgeRecord) error
	DeleteEdge(ctx context.Context, edge domain.EdgeRecord) error

	// Layout persistence
	SavePositions(ctx context.Context, positions []domain.NodePosition) error
	SaveView(ctx context.Context, view domain.ViewRecord) error

	// Bulk operations
	ImportFragment(ctx context.Context, fragment *domain.GraphFragment, strategy string) (map[string]int, error)
	ExportFragment(ctx context.Context) (*domain.GraphFragment, error)

	// Close releases resources
	Close() error
}

// ErrUnknownStrategy reports an import strategy other than merge or replace.
var ErrUnknownStrategy = errors.New("unknown import strategy")

// Import strategies
const (
	StrategyMerge   = "merge"   // upsert nodes and add missing edges
	StrategyReplace = "replace" // clear the graph first
)
