package database

import "database/sql"

// InsertReport stores a generated markdown report.
func (db *DB) InsertReport(bodyMarkdown string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO reports (body_markdown) VALUES (?)", bodyMarkdown,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetReport returns a report by ID, or nil when it does not exist.
func (db *DB) GetReport(id int64) (*Report, error) {
	row := db.conn.QueryRow(
		"SELECT id, body_markdown, generated_at FROM reports WHERE id = ?", id,
	)
	var r Report
	err := row.Scan(&r.ID, &r.BodyMarkdown, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecentReports returns up to limit reports, newest first.
func (db *DB) GetRecentReports(limit int) ([]Report, error) {
	rows, err := db.conn.Query(
		"SELECT id, body_markdown, generated_at FROM reports ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.BodyMarkdown, &r.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
