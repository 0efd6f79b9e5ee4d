package sqlite

import (
	"database/sql"
	"encoding/json"

	"nodecanvas/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToBool converts sql.NullInt64 to bool (0 = false, non-zero = true)
func nullToBool(ni sql.NullInt64) bool {
	return ni.Valid && ni.Int64 != 0
}

// boolToInt stores a bool as SQLite's 0/1
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals a value to a nullable JSON string
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Node Row Scanner
// ============================================================================

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID       int64
	Label    string
	X        float64
	Y        float64
	Selected sql.NullInt64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly:
// id, label, position_x, position_y, selected
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,       // 1
		&r.Label,    // 2
		&r.X,        // 3
		&r.Y,        // 4
		&r.Selected, // 5
	}
}

// toDomain converts the scanned row to a domain.NodeRecord
func (r *nodeRow) toDomain() domain.NodeRecord {
	return domain.NodeRecord{
		ID:       domain.NodeID(r.ID),
		Label:    r.Label,
		X:        r.X,
		Y:        r.Y,
		Selected: nullToBool(r.Selected),
	}
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, label, position_x, position_y, selected`

// nodeInsertArgs returns the INSERT arguments for a node:
// id, label, position_x, position_y, selected
func nodeInsertArgs(node domain.NodeRecord) []interface{} {
	return []interface{}{
		int64(node.ID),
		node.Label,
		node.X,
		node.Y,
		boolToInt(node.Selected),
	}
}

// ============================================================================
// Edge Row Scanner
// ============================================================================

// edgeRow holds all columns from an edge query for scanning
type edgeRow struct {
	SourceID int64
	TargetID int64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match edgeColumns order exactly: source_id, target_id
func (r *edgeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.SourceID, // 1
		&r.TargetID, // 2
	}
}

// toDomain converts the scanned row to a domain.EdgeRecord
func (r *edgeRow) toDomain() domain.EdgeRecord {
	return domain.EdgeRecord{
		Source: domain.NodeID(r.SourceID),
		Target: domain.NodeID(r.TargetID),
	}
}

// edgeColumns returns the SELECT column list for edge queries
const edgeColumns = `source_id, target_id`
