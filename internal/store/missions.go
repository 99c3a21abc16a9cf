package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertMission inserts or replaces a mission row.
func UpsertMission(tx *sql.Tx, m *Mission) error {
	_, err := tx.Exec(
		`INSERT INTO missions (id, name, source_path, scanned_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, source_path = excluded.source_path,
		   scanned_at = excluded.scanned_at`,
		m.ID, m.Name, m.SourcePath, m.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert mission %s: %w", m.ID, err)
	}
	return nil
}

// MissionByID returns the mission, or nil if not found.
func MissionByID(db queryer, id string) (*Mission, error) {
	var m Mission
	err := db.QueryRow("SELECT id, name, source_path, scanned_at FROM missions WHERE id = ?", id).
		Scan(&m.ID, &m.Name, &m.SourcePath, &m.ScannedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mission by id %s: %w", id, err)
	}
	return &m, nil
}

// AllMissions returns every mission, ordered by id.
func AllMissions(db queryer) ([]*Mission, error) {
	rows, err := db.Query("SELECT id, name, source_path, scanned_at FROM missions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all missions: %w", err)
	}
	defer rows.Close()
	var out []*Mission
	for rows.Next() {
		var m Mission
		if err := rows.Scan(&m.ID, &m.Name, &m.SourcePath, &m.ScannedAt); err != nil {
			return nil, fmt.Errorf("all missions: scan: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ReplaceMissionComponents deletes and re-inserts every component for a
// mission in one transaction, matching the "rewritten on each rescan"
// lifecycle rule in spec.md §3.
func ReplaceMissionComponents(tx *sql.Tx, missionID string, components []*MissionComponent) error {
	if _, err := tx.Exec("DELETE FROM mission_components WHERE mission_id = ?", missionID); err != nil {
		return fmt.Errorf("replace mission components %s: delete: %w", missionID, err)
	}
	stmt, err := tx.Prepare("INSERT INTO mission_components (mission_id, component_id, kind, relative_path) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("replace mission components %s: prepare: %w", missionID, err)
	}
	defer stmt.Close()
	for _, c := range components {
		if _, err := stmt.Exec(missionID, c.ComponentID, c.Kind, c.RelativePath); err != nil {
			return fmt.Errorf("replace mission components %s: insert %s: %w", missionID, c.ComponentID, err)
		}
	}
	return nil
}

// ComponentsForMission returns mission_components rows for a mission.
func ComponentsForMission(db queryer, missionID string) ([]*MissionComponent, error) {
	rows, err := db.Query("SELECT mission_id, component_id, kind, relative_path FROM mission_components WHERE mission_id = ? ORDER BY component_id", missionID)
	if err != nil {
		return nil, fmt.Errorf("components for mission %s: %w", missionID, err)
	}
	defer rows.Close()
	var out []*MissionComponent
	for rows.Next() {
		var c MissionComponent
		if err := rows.Scan(&c.MissionID, &c.ComponentID, &c.Kind, &c.RelativePath); err != nil {
			return nil, fmt.Errorf("components for mission %s: scan: %w", missionID, err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// ReplaceMissionDependencies deletes and re-inserts every dependency row for
// a mission in one transaction (spec.md §3: "dependencies are rewritten on
// each rescan of a mission").
func ReplaceMissionDependencies(tx *sql.Tx, missionID string, deps []*MissionDependency) error {
	if _, err := tx.Exec("DELETE FROM mission_dependencies WHERE mission_id = ?", missionID); err != nil {
		return fmt.Errorf("replace mission dependencies %s: delete: %w", missionID, err)
	}
	stmt, err := tx.Prepare(
		"INSERT INTO mission_dependencies (mission_id, class_name, reference_kind, source_file, line_number) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("replace mission dependencies %s: prepare: %w", missionID, err)
	}
	defer stmt.Close()
	for _, d := range deps {
		if _, err := stmt.Exec(missionID, d.ClassName, string(d.ReferenceKind), d.SourceFileRelative, d.LineNumber); err != nil {
			return fmt.Errorf("replace mission dependencies %s: insert %s: %w", missionID, d.ClassName, err)
		}
	}
	return nil
}

// DependenciesForMission returns every dependency row for a mission.
func DependenciesForMission(db queryer, missionID string) ([]*MissionDependency, error) {
	rows, err := db.Query(
		"SELECT id, mission_id, class_name, reference_kind, source_file, line_number FROM mission_dependencies WHERE mission_id = ? ORDER BY id",
		missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("dependencies for mission %s: %w", missionID, err)
	}
	defer rows.Close()
	return scanMissionDependencies(rows)
}

// AllMissionDependencies returns every dependency row across every mission,
// for the single bulk query the dependency analyser uses (spec.md §4.9
// implementation notes: "a single bulk query pulls every dependency row").
func AllMissionDependencies(db queryer) ([]*MissionDependency, error) {
	rows, err := db.Query("SELECT id, mission_id, class_name, reference_kind, source_file, line_number FROM mission_dependencies ORDER BY mission_id, id")
	if err != nil {
		return nil, fmt.Errorf("all mission dependencies: %w", err)
	}
	defer rows.Close()
	return scanMissionDependencies(rows)
}

func scanMissionDependencies(rows *sql.Rows) ([]*MissionDependency, error) {
	var out []*MissionDependency
	for rows.Next() {
		var d MissionDependency
		var kind string
		var line sql.NullInt64
		if err := rows.Scan(&d.ID, &d.MissionID, &d.ClassName, &kind, &d.SourceFileRelative, &line); err != nil {
			return nil, fmt.Errorf("scan mission dependency: %w", err)
		}
		d.ReferenceKind = ReferenceKind(kind)
		if line.Valid {
			n := int(line.Int64)
			d.LineNumber = &n
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

// NowTruncated returns time.Now() truncated to second precision, matching
// SQLite's TIMESTAMP storage granularity so round-trips compare equal.
func NowTruncated() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
