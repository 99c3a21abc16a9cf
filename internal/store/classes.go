package store

import (
	"database/sql"
	"fmt"
)

// classCols lists the classes table columns in scan order.
const classCols = "id, parent_id, container_class, source_file_index, is_forward_declaration, properties_blob"

// scanClass scans one classes row.
func scanClass(row interface{ Scan(...any) error }) (*Class, error) {
	var c Class
	var parentID, containerID sql.NullString
	var sourceFileIndex sql.NullInt64
	var propsBlob string
	if err := row.Scan(&c.ID, &parentID, &containerID, &sourceFileIndex, &c.IsForwardDeclaration, &propsBlob); err != nil {
		return nil, err
	}
	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	if containerID.Valid {
		c.ContainerID = &containerID.String
	}
	if sourceFileIndex.Valid {
		c.SourceFileIndex = &sourceFileIndex.Int64
	}
	props, err := UnmarshalProperties(propsBlob)
	if err != nil {
		return nil, fmt.Errorf("scan class %s: %w", c.ID, err)
	}
	c.Properties = props
	return &c, nil
}

// UpsertClass inserts a class, or merges it with an existing row of the
// same id. Class id is unique per store (spec.md §3 invariant); the merge
// resolves the boundary case where a class is forward-declared in one file
// and fully declared in another: a non-forward-declaration is never
// overwritten by an incoming forward declaration, matching the rule
// "the one with is_forward_declaration=false wins for hierarchy queries"
// (spec.md §8) under a one-row-per-id schema.
func UpsertClass(tx *sql.Tx, c *Class) error {
	propsBlob, err := MarshalProperties(c.Properties)
	if err != nil {
		return fmt.Errorf("upsert class %s: %w", c.ID, err)
	}

	var existingForward sql.NullBool
	err = tx.QueryRow("SELECT is_forward_declaration FROM classes WHERE id = ?", c.ID).Scan(&existingForward)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(
			`INSERT INTO classes (`+classCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.ParentID, c.ContainerID, c.SourceFileIndex, c.IsForwardDeclaration, propsBlob,
		)
		if err != nil {
			return fmt.Errorf("upsert class %s: insert: %w", c.ID, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("upsert class %s: lookup: %w", c.ID, err)
	}

	if existingForward.Valid && !existingForward.Bool && c.IsForwardDeclaration {
		// Existing row is a full declaration; don't downgrade it.
		return nil
	}

	_, err = tx.Exec(
		`UPDATE classes SET parent_id = ?, container_class = ?, source_file_index = ?,
		   is_forward_declaration = ?, properties_blob = ? WHERE id = ?`,
		c.ParentID, c.ContainerID, c.SourceFileIndex, c.IsForwardDeclaration, propsBlob, c.ID,
	)
	if err != nil {
		return fmt.Errorf("upsert class %s: update: %w", c.ID, err)
	}
	return nil
}

// DeleteClassesForPbo removes every class whose source_file_index maps to
// pboID, used when an archive is re-extracted and its classes must be
// replaced en bloc (spec.md §3 Lifecycle).
func DeleteClassesForPbo(tx *sql.Tx, pboID string) error {
	_, err := tx.Exec(
		`DELETE FROM classes WHERE source_file_index IN (
		   SELECT file_index FROM file_index_mapping WHERE pbo_id = ?
		 )`, pboID,
	)
	if err != nil {
		return fmt.Errorf("delete classes for pbo %s: %w", pboID, err)
	}
	return nil
}

// ClassByID returns the class row, or nil if not found. Lookup is exact
// (case-sensitive); use ClassByIDFold for the case-insensitive join
// convention described in spec.md §3.
func ClassByID(db queryer, id string) (*Class, error) {
	row := db.QueryRow("SELECT "+classCols+" FROM classes WHERE id = ?", id)
	c, err := scanClass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("class by id %s: %w", id, err)
	}
	return c, nil
}

// ClassByIDFold looks up a class by case-insensitive id match.
func ClassByIDFold(db queryer, id string) (*Class, error) {
	row := db.QueryRow("SELECT "+classCols+" FROM classes WHERE id = ? COLLATE NOCASE", id)
	c, err := scanClass(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("class by id (fold) %s: %w", id, err)
	}
	return c, nil
}

// AllClassIDs returns every class id in the store, sorted.
func AllClassIDs(db queryer) ([]string, error) {
	rows, err := db.Query("SELECT id FROM classes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all class ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("all class ids: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AllClasses returns every class row, ordered by id for deterministic output.
func AllClasses(db queryer) ([]*Class, error) {
	rows, err := db.Query("SELECT " + classCols + " FROM classes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all classes: %w", err)
	}
	defer rows.Close()
	var out []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("all classes: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RootClasses returns classes with no parent, or whose parent is absent
// from the store (spec.md §4.8 hierarchy build, "no root given" case).
func RootClasses(db queryer) ([]*Class, error) {
	rows, err := db.Query(`
		SELECT ` + classCols + ` FROM classes c
		WHERE c.parent_id IS NULL
		   OR NOT EXISTS (SELECT 1 FROM classes p WHERE p.id = c.parent_id)
		ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("root classes: %w", err)
	}
	defer rows.Close()
	var out []*Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("root classes: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx for read-only helpers
// that are useful in either context.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}
