package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// NormalizePath lower-cases path and converts separators to forward slashes,
// matching the normalized_path convention in spec.md §3.
func NormalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

// UpsertFileIndexMapping inserts a file_index_mapping row keyed by
// (normalized_path, pbo_id), or returns the existing file_index if one
// already exists — this is the coordination point described in spec.md §5
// ("the file-index mapping table is a coordination point; inserting a new
// row must return the assigned index; workers use an upsert keyed on
// (normalized_path, pbo_id) to avoid duplicates").
func UpsertFileIndexMapping(tx *sql.Tx, filePath string, pboID *string) (int64, error) {
	normalized := NormalizePath(filePath)

	var existing int64
	var err error
	if pboID == nil {
		err = tx.QueryRow(
			"SELECT file_index FROM file_index_mapping WHERE normalized_path = ? AND pbo_id IS NULL",
			normalized,
		).Scan(&existing)
	} else {
		err = tx.QueryRow(
			"SELECT file_index FROM file_index_mapping WHERE normalized_path = ? AND pbo_id = ?",
			normalized, *pboID,
		).Scan(&existing)
	}
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("upsert file index mapping: lookup: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO file_index_mapping (file_path, normalized_path, pbo_id) VALUES (?, ?, ?)",
		filePath, normalized, pboID,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file index mapping: insert: %w", err)
	}
	return res.LastInsertId()
}

// FileIndexMappingByIndex returns the mapping row, or nil if not found.
func FileIndexMappingByIndex(db queryer, fileIndex int64) (*FileIndexMapping, error) {
	var m FileIndexMapping
	var pboID sql.NullString
	err := db.QueryRow(
		"SELECT file_index, file_path, normalized_path, pbo_id FROM file_index_mapping WHERE file_index = ?",
		fileIndex,
	).Scan(&m.FileIndex, &m.FilePath, &m.NormalizedPath, &pboID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file index mapping %d: %w", fileIndex, err)
	}
	if pboID.Valid {
		m.PboID = &pboID.String
	}
	return &m, nil
}

// AllFileIndexMappings returns every row, ordered by file_index.
func AllFileIndexMappings(db queryer) ([]*FileIndexMapping, error) {
	rows, err := db.Query("SELECT file_index, file_path, normalized_path, pbo_id FROM file_index_mapping ORDER BY file_index")
	if err != nil {
		return nil, fmt.Errorf("all file index mappings: %w", err)
	}
	defer rows.Close()
	var out []*FileIndexMapping
	for rows.Next() {
		var m FileIndexMapping
		var pboID sql.NullString
		if err := rows.Scan(&m.FileIndex, &m.FilePath, &m.NormalizedPath, &pboID); err != nil {
			return nil, fmt.Errorf("all file index mappings: scan: %w", err)
		}
		if pboID.Valid {
			m.PboID = &pboID.String
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// DeleteFileIndexMappingsForPbo removes mapping rows for a given archive.
// Classes referencing these rows cascade-delete per the FK in schemaDDL.
func DeleteFileIndexMappingsForPbo(tx *sql.Tx, pboID string) error {
	_, err := tx.Exec("DELETE FROM file_index_mapping WHERE pbo_id = ?", pboID)
	if err != nil {
		return fmt.Errorf("delete file index mappings for pbo %s: %w", pboID, err)
	}
	return nil
}
