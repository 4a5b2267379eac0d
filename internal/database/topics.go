package database

import (
	"database/sql"
	"time"
)

// UpsertBlockedTopic creates or refreshes a topic block. A nil until means
// the block is permanent. Re-blocking an existing topic resets its window
// and reason but keeps the accumulated conflict count.
func (db *DB) UpsertBlockedTopic(normalized, original, reason string, until *time.Time) error {
	var untilStr *string
	if until != nil {
		s := until.UTC().Format(TimeLayout)
		untilStr = &s
	}
	_, err := db.conn.Exec(
		`INSERT INTO blocked_topics (topic_normalized, topic_original, reason, blocked_until)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(topic_normalized) DO UPDATE SET
			topic_original = excluded.topic_original,
			reason = excluded.reason,
			blocked_at = datetime('now'),
			blocked_until = excluded.blocked_until`,
		normalized, original, reason, untilStr,
	)
	return err
}

// GetBlockedTopic returns the block row for a normalized topic, expired or
// not, or nil when no such row exists.
func (db *DB) GetBlockedTopic(normalized string) (*BlockedTopic, error) {
	row := db.conn.QueryRow(blockedTopicColumns+` WHERE topic_normalized = ?`, normalized)
	bt, err := scanBlockedTopic(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bt, nil
}

// GetActiveBlockedTopics returns blocks that are permanent or not yet
// expired at the given instant, most recently blocked first.
func (db *DB) GetActiveBlockedTopics(now time.Time) ([]BlockedTopic, error) {
	rows, err := db.conn.Query(
		blockedTopicColumns+` WHERE blocked_until IS NULL OR blocked_until > ?
		ORDER BY blocked_at DESC`,
		now.UTC().Format(TimeLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []BlockedTopic
	for rows.Next() {
		bt, err := scanBlockedTopic(rows.Scan)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *bt)
	}
	return topics, rows.Err()
}

// IncrementConflict bumps the conflict counter for a block.
func (db *DB) IncrementConflict(id int64) error {
	_, err := db.conn.Exec(
		"UPDATE blocked_topics SET conflict_count = conflict_count + 1 WHERE id = ?", id,
	)
	return err
}

// DeleteBlockedTopic removes a block and reports whether a row existed.
func (db *DB) DeleteBlockedTopic(normalized string) (bool, error) {
	result, err := db.conn.Exec(
		"DELETE FROM blocked_topics WHERE topic_normalized = ?", normalized,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// CountBlockedTopics returns how many blocks are permanent and how many are
// temporary-and-active at the given instant.
func (db *DB) CountBlockedTopics(now time.Time) (permanent, temporary int, err error) {
	nowStr := now.UTC().Format(TimeLayout)
	err = db.conn.QueryRow(
		`SELECT
			COUNT(CASE WHEN blocked_until IS NULL THEN 1 END),
			COUNT(CASE WHEN blocked_until > ? THEN 1 END)
		FROM blocked_topics`, nowStr,
	).Scan(&permanent, &temporary)
	return permanent, temporary, err
}

// DeleteExpiredBlocks removes temporary blocks whose window has passed.
// Permanent blocks are never touched.
func (db *DB) DeleteExpiredBlocks(now time.Time) (int64, error) {
	result, err := db.conn.Exec(
		"DELETE FROM blocked_topics WHERE blocked_until IS NOT NULL AND blocked_until <= ?",
		now.UTC().Format(TimeLayout),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const blockedTopicColumns = `SELECT id, topic_normalized, topic_original, reason,
	blocked_at, blocked_until, conflict_count FROM blocked_topics`

func scanBlockedTopic(scan func(dest ...any) error) (*BlockedTopic, error) {
	var bt BlockedTopic
	if err := scan(&bt.ID, &bt.TopicNormalized, &bt.TopicOriginal, &bt.Reason,
		&bt.BlockedAt, &bt.BlockedUntil, &bt.ConflictCount); err != nil {
		return nil, err
	}
	return &bt, nil
}
