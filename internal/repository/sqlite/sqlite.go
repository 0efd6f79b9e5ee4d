package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"nodecanvas/internal/domain"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Repository = (*Repository)(nil)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// New creates a new SQLite repository. dbPath may be ":memory:".
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// A single connection keeps an in-memory database alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return repo, nil
}

func dsn(path string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if path != ":memory:" && !strings.Contains(path, "mode=memory") {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(pragmas, "&")
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY,
		label TEXT NOT NULL,
		position_x REAL NOT NULL DEFAULT 0,
		position_y REAL NOT NULL DEFAULT 0,
		selected INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS edges (
		source_id INTEGER NOT NULL,
		target_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source_id, target_id),
		FOREIGN KEY (source_id) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (target_id) REFERENCES nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS view (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pan_x REAL NOT NULL DEFAULT 0,
		pan_y REAL NOT NULL DEFAULT 0,
		zoom REAL NOT NULL DEFAULT 1,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ============================================================================
// Nodes
// ============================================================================

// GetNode retrieves a single node by id
func (r *Repository) GetNode(ctx context.Context, id domain.NodeID) (*domain.NodeRecord, error) {
	var row nodeRow
	err := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, int64(id)).
		Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get node %d", id)
	}
	node := row.toDomain()
	return &node, nil
}

// ListNodes returns every node ordered by id
func (r *Repository) ListNodes(ctx context.Context) ([]domain.NodeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query nodes")
	}
	defer rows.Close()

	nodes := make([]domain.NodeRecord, 0)
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, errors.Wrap(err, "failed to scan node")
		}
		nodes = append(nodes, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating nodes")
	}
	return nodes, nil
}

// CreateNode inserts a node. An existing id yields ErrDuplicateID.
func (r *Repository) CreateNode(ctx context.Context, node domain.NodeRecord) error {
	return createNode(ctx, r.db, node)
}

func createNode(ctx context.Context, q queryer, node domain.NodeRecord) error {
	exists, err := nodeExists(ctx, q, node.ID)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(errors.ErrDuplicateID, "node %d", node.ID)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO nodes (id, label, position_x, position_y, selected)
		VALUES (?, ?, ?, ?, ?)
	`, nodeInsertArgs(node)...)
	if err != nil {
		return errors.Wrapf(err, "failed to insert node %d", node.ID)
	}
	return nil
}

// UpsertNode inserts or updates a node
func (r *Repository) UpsertNode(ctx context.Context, node domain.NodeRecord) error {
	return upsertNode(ctx, r.db, node)
}

func upsertNode(ctx context.Context, q queryer, node domain.NodeRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO nodes (id, label, position_x, position_y, selected)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			label = excluded.label,
			position_x = excluded.position_x,
			position_y = excluded.position_y,
			selected = excluded.selected,
			updated_at = CURRENT_TIMESTAMP
	`, nodeInsertArgs(node)...)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert node %d", node.ID)
	}
	return nil
}

// UpdateNodeLabel changes a node's label. A missing node yields ErrUnknownNode.
func (r *Repository) UpdateNodeLabel(ctx context.Context, id domain.NodeID, label string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE nodes SET label = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, label, int64(id))
	if err != nil {
		return errors.Wrapf(err, "failed to update node %d", id)
	}
	return requireAffected(res, errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
}

// DeleteNode removes a node and, by cascade, every edge touching it
func (r *Repository) DeleteNode(ctx context.Context, id domain.NodeID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, int64(id))
	if err != nil {
		return errors.Wrapf(err, "failed to delete node %d", id)
	}
	return requireAffected(res, errors.Wrapf(errors.ErrUnknownNode, "node %d", id))
}

func nodeExists(ctx context.Context, q queryer, id domain.NodeID) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE id = ?`, int64(id)).Scan(&n)
	if err != nil {
		return false, errors.Wrapf(err, "failed to look up node %d", id)
	}
	return n > 0, nil
}

// ============================================================================
// Edges
// ============================================================================

// ListEdges returns every edge in insertion order
func (r *Repository) ListEdges(ctx context.Context) ([]domain.EdgeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query edges")
	}
	defer rows.Close()

	edges := make([]domain.EdgeRecord, 0)
	for rows.Next() {
		var row edgeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, errors.Wrap(err, "failed to scan edge")
		}
		edges = append(edges, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating edges")
	}
	return edges, nil
}

// CreateEdge inserts an edge. Missing endpoints yield ErrDanglingEdge and an
// existing pair yields ErrDuplicateID.
func (r *Repository) CreateEdge(ctx context.Context, edge domain.EdgeRecord) error {
	return createEdge(ctx, r.db, edge)
}

func createEdge(ctx context.Context, q queryer, edge domain.EdgeRecord) error {
	for _, id := range []domain.NodeID{edge.Source, edge.Target} {
		exists, err := nodeExists(ctx, q, id)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(errors.ErrDanglingEdge, "edge %d->%d: node %d missing", edge.Source, edge.Target, id)
		}
	}
	res, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO edges (source_id, target_id) VALUES (?, ?)
	`, int64(edge.Source), int64(edge.Target))
	if err != nil {
		return errors.Wrapf(err, "failed to insert edge %d->%d", edge.Source, edge.Target)
	}
	return requireAffected(res, errors.Wrapf(errors.ErrDuplicateID, "edge %d->%d", edge.Source, edge.Target))
}

// DeleteEdge removes an edge. A missing pair yields ErrUnknownEdge.
func (r *Repository) DeleteEdge(ctx context.Context, edge domain.EdgeRecord) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM edges WHERE source_id = ? AND target_id = ?
	`, int64(edge.Source), int64(edge.Target))
	if err != nil {
		return errors.Wrapf(err, "failed to delete edge %d->%d", edge.Source, edge.Target)
	}
	return requireAffected(res, errors.Wrapf(errors.ErrUnknownEdge, "edge %d->%d", edge.Source, edge.Target))
}

// ============================================================================
// Layout
// ============================================================================

// SavePositions updates position data for multiple nodes. Unknown ids are
// ignored.
func (r *Repository) SavePositions(ctx context.Context, positions []domain.NodePosition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE nodes SET position_x = ?, position_y = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare statement")
	}
	defer stmt.Close()

	for _, pos := range positions {
		if _, err := stmt.ExecContext(ctx, pos.X, pos.Y, int64(pos.NodeID)); err != nil {
			return errors.Wrapf(err, "failed to update position for %d", pos.NodeID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// SaveView stores the surface's pan and zoom
func (r *Repository) SaveView(ctx context.Context, view domain.ViewRecord) error {
	return saveView(ctx, r.db, view)
}

func saveView(ctx context.Context, q queryer, view domain.ViewRecord) error {
	if err := view.ViewState().Validate(); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO view (id, pan_x, pan_y, zoom) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pan_x = excluded.pan_x,
			pan_y = excluded.pan_y,
			zoom = excluded.zoom,
			updated_at = CURRENT_TIMESTAMP
	`, view.PanX, view.PanY, view.Zoom)
	if err != nil {
		return errors.Wrap(err, "failed to save view")
	}
	return nil
}

// GetView returns the stored view, or nil if none has been saved
func (r *Repository) GetView(ctx context.Context) (*domain.ViewRecord, error) {
	var v domain.ViewRecord
	err := r.db.QueryRowContext(ctx, `SELECT pan_x, pan_y, zoom FROM view WHERE id = 1`).
		Scan(&v.PanX, &v.PanY, &v.Zoom)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get view")
	}
	return &v, nil
}

// ============================================================================
// Bulk Operations
// ============================================================================

// ImportFragment loads a fragment in one transaction.
//
// With StrategyReplace the graph is cleared first and the fragment must be
// self-contained. With StrategyMerge nodes are upserted and edges may refer
// to nodes already stored; edges that already exist are skipped.
//
// The result counts nodes_created, nodes_updated, edges_created and
// edges_skipped.
func (r *Repository) ImportFragment(ctx context.Context, fragment *domain.GraphFragment, strategy string) (map[string]int, error) {
	if strategy == "" {
		strategy = repository.StrategyMerge
	}
	if strategy != repository.StrategyMerge && strategy != repository.StrategyReplace {
		return nil, errors.WithHintf(errors.Wrapf(repository.ErrUnknownStrategy, "%q", strategy),
			"use %q or %q", repository.StrategyMerge, repository.StrategyReplace)
	}
	if strategy == repository.StrategyReplace {
		if err := fragment.Validate(); err != nil {
			return nil, err
		}
	}

	result := map[string]int{
		"nodes_created": 0,
		"nodes_updated": 0,
		"edges_created": 0,
		"edges_skipped": 0,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if strategy == repository.StrategyReplace {
		if err := clearGraph(ctx, tx); err != nil {
			return nil, err
		}
	}

	seen := make(map[domain.NodeID]struct{}, len(fragment.Nodes))
	for _, node := range fragment.Nodes {
		if _, dup := seen[node.ID]; dup {
			return nil, errors.Wrapf(errors.ErrDuplicateID, "node %d", node.ID)
		}
		seen[node.ID] = struct{}{}

		exists, err := nodeExists(ctx, tx, node.ID)
		if err != nil {
			return nil, err
		}
		if err := upsertNode(ctx, tx, node); err != nil {
			return nil, err
		}
		if exists {
			result["nodes_updated"]++
		} else {
			result["nodes_created"]++
		}
	}

	for _, edge := range fragment.Edges {
		err := createEdge(ctx, tx, edge)
		switch {
		case err == nil:
			result["edges_created"]++
		case errors.Is(err, errors.ErrDuplicateID):
			result["edges_skipped"]++
		default:
			return nil, err
		}
	}

	if fragment.View != nil {
		if err := saveView(ctx, tx, *fragment.View); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return result, nil
}

// ExportFragment returns the stored graph, including the view if one was
// saved
func (r *Repository) ExportFragment(ctx context.Context) (*domain.GraphFragment, error) {
	nodes, err := r.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := r.ListEdges(ctx)
	if err != nil {
		return nil, err
	}
	view, err := r.GetView(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.GraphFragment{Nodes: nodes, Edges: edges, View: view}, nil
}

// ClearGraph removes every node, edge and the saved view
func (r *Repository) ClearGraph(ctx context.Context) error {
	return clearGraph(ctx, r.db)
}

func clearGraph(ctx context.Context, q queryer) error {
	// Order matters due to foreign keys
	for _, table := range []string{"edges", "nodes", "view"} {
		if _, err := q.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return errors.Wrapf(err, "failed to clear %s", table)
		}
	}
	return nil
}

// ============================================================================
// Metadata
// ============================================================================

// SetMetadata stores a JSON-encoded value under key
func (r *Repository) SetMetadata(ctx context.Context, key string, value interface{}) error {
	data, err := marshalToNull(value)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal metadata %q", key)
	}
	if !data.Valid {
		data.String, data.Valid = "null", true
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, data)
	if err != nil {
		return errors.Wrapf(err, "failed to set metadata %q", key)
	}
	return nil
}

// GetMetadata decodes the value stored under key into target. It reports
// whether the key was present.
func (r *Repository) GetMetadata(ctx context.Context, key string, target interface{}) (bool, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to get metadata %q", key)
	}
	if err := unmarshalJSONField(value, target); err != nil {
		return true, errors.Wrapf(err, "failed to decode metadata %q", key)
	}
	return true, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
