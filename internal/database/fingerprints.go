package database

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// InsertFingerprint inserts a fingerprint row. Returns the ID on success and
// (0, nil) when the full_text_hash unique constraint fires: a duplicate key
// is a normal outcome here (it closes the race between concurrent
// validate-and-register calls on identical content), not an error.
func (db *DB) InsertFingerprint(fp *Fingerprint) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO content_fingerprints
		(title_hash, body_hash, full_text_hash, topic_keywords, semantic_tokens, legal_refs, content_type, producer_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fp.TitleHash, fp.BodyHash, fp.FullTextHash,
		marshalSet(fp.TopicKeywords), marshalSet(fp.SemanticTokens), marshalSet(fp.LegalRefs),
		fp.ContentType, fp.ProducerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, nil
		}
		return 0, err
	}
	return result.LastInsertId()
}

// GetByFullTextHash returns the fingerprint with the given hash, or nil.
func (db *DB) GetByFullTextHash(hash string) (*Fingerprint, error) {
	row := db.conn.QueryRow(
		fingerprintColumns+` WHERE full_text_hash = ?`, hash,
	)
	fp, err := scanFingerprintRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fp, nil
}

// GetRecentFingerprints returns up to limit fingerprints of the given
// content type created at or after since, newest first. This bounds the
// fuzzy-similarity scan to a fixed window.
func (db *DB) GetRecentFingerprints(contentType string, since time.Time, limit int) ([]Fingerprint, error) {
	rows, err := db.conn.Query(
		fingerprintColumns+` WHERE content_type = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC LIMIT ?`,
		contentType, since.UTC().Format(TimeLayout), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []Fingerprint
	for rows.Next() {
		fp, err := scanFingerprintRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		fps = append(fps, *fp)
	}
	return fps, rows.Err()
}

// CountFingerprints returns the total number of stored fingerprints.
func (db *DB) CountFingerprints() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM content_fingerprints").Scan(&n)
	return n, err
}

// CountByProducer returns fingerprint counts grouped by producer.
func (db *DB) CountByProducer() (map[string]int, error) {
	rows, err := db.conn.Query(
		"SELECT producer_id, COUNT(*) FROM content_fingerprints GROUP BY producer_id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var producer string
		var n int
		if err := rows.Scan(&producer, &n); err != nil {
			return nil, err
		}
		counts[producer] = n
	}
	return counts, rows.Err()
}

// LastActivity returns the most recent fingerprint creation time, or nil
// when the table is empty.
func (db *DB) LastActivity() (*string, error) {
	var last sql.NullString
	err := db.conn.QueryRow("SELECT MAX(created_at) FROM content_fingerprints").Scan(&last)
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.String, nil
}

// DeleteFingerprintsBefore deletes fingerprints created before cutoff and
// returns how many rows were removed.
func (db *DB) DeleteFingerprintsBefore(cutoff time.Time) (int64, error) {
	result, err := db.conn.Exec(
		"DELETE FROM content_fingerprints WHERE created_at < ?",
		cutoff.UTC().Format(TimeLayout),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const fingerprintColumns = `SELECT id, title_hash, body_hash, full_text_hash,
	topic_keywords, semantic_tokens, legal_refs, content_type, producer_id,
	usage_count, created_at, last_used FROM content_fingerprints`

func scanFingerprintRow(scan func(dest ...any) error) (*Fingerprint, error) {
	var fp Fingerprint
	var keywords, tokens, refs string
	if err := scan(&fp.ID, &fp.TitleHash, &fp.BodyHash, &fp.FullTextHash,
		&keywords, &tokens, &refs, &fp.ContentType, &fp.ProducerID,
		&fp.UsageCount, &fp.CreatedAt, &fp.LastUsed); err != nil {
		return nil, err
	}
	fp.TopicKeywords = unmarshalSet(keywords)
	fp.SemanticTokens = unmarshalSet(tokens)
	fp.LegalRefs = unmarshalSet(refs)
	return &fp, nil
}

func marshalSet(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func unmarshalSet(data string) []string {
	if data == "" || data == "[]" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil
	}
	return values
}

// isUniqueViolation reports whether err is a sqlite unique-constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
