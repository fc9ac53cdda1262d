package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Save replaces the stored workspace with snap in one transaction. A failed
// save leaves the previous snapshot intact.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{"DELETE FROM attributes", "DELETE FROM objects", "DELETE FROM meta"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("save: clear: %w", err)
		}
	}

	for i, obj := range snap.Objects {
		if err := insertObject(ctx, tx, int64(i+1), obj); err != nil {
			return fmt.Errorf("save %s %q: %w", obj.Kind, obj.ID, err)
		}
	}

	for _, k := range sortedKeys(snap.Meta) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, snap.Meta[k]); err != nil {
			return fmt.Errorf("save meta %q: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: commit: %w", err)
	}
	return nil
}

func insertObject(ctx context.Context, tx *sql.Tx, ord int64, obj Object) error {
	content, err := marshalContent(obj.Content)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO objects (ord, id, kind, parent_id, class, name, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ord, obj.ID, string(obj.Kind), obj.ParentID, obj.Class, obj.Name, content)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(obj.Attributes) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attributes (object_ord, name, value) VALUES (?, ?, ?)
		`, ord, name, obj.Attributes[name])
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
