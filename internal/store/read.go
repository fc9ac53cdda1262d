package store

import (
	"context"
	"fmt"
)

// Load reads the stored workspace. An empty database yields an empty
// snapshot, not an error.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, id, kind, parent_id, class, name, content
		FROM objects
		ORDER BY ord ASC
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("query objects: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{Meta: map[string]string{}}
	byOrd := make(map[int64]int)
	for rows.Next() {
		var (
			ord     int64
			kind    string
			content string
			obj     Object
		)
		if err := rows.Scan(&ord, &obj.ID, &kind, &obj.ParentID, &obj.Class, &obj.Name, &content); err != nil {
			return Snapshot{}, fmt.Errorf("scan object: %w", err)
		}
		obj.Kind = Kind(kind)
		if obj.Content, err = unmarshalContent(content); err != nil {
			return Snapshot{}, fmt.Errorf("object %q: %w", obj.ID, err)
		}
		obj.Attributes = map[string]string{}
		byOrd[ord] = len(snap.Objects)
		snap.Objects = append(snap.Objects, obj)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("iterate objects: %w", err)
	}

	if err := s.loadAttributes(ctx, snap.Objects, byOrd); err != nil {
		return Snapshot{}, err
	}
	if err := s.loadMeta(ctx, snap.Meta); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) loadAttributes(ctx context.Context, objects []Object, byOrd map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT object_ord, name, value
		FROM attributes
		ORDER BY object_ord ASC, name ASC
	`)
	if err != nil {
		return fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ord         int64
			name, value string
		)
		if err := rows.Scan(&ord, &name, &value); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		if i, ok := byOrd[ord]; ok {
			objects[i].Attributes[name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attributes: %w", err)
	}
	return nil
}

func (s *Store) loadMeta(ctx context.Context, meta map[string]string) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta ORDER BY key ASC`)
	if err != nil {
		return fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate meta: %w", err)
	}
	return nil
}

// Counts returns the number of stored objects per kind.
func (s *Store) Counts(ctx context.Context) (map[Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM objects GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Kind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Kind(kind)] = n
	}
	return counts, rows.Err()
}
