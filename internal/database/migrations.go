package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS content_fingerprints (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title_hash TEXT NOT NULL,
    body_hash TEXT NOT NULL,
    full_text_hash TEXT UNIQUE NOT NULL,
    topic_keywords TEXT NOT NULL DEFAULT '[]',
    semantic_tokens TEXT NOT NULL DEFAULT '[]',
    legal_refs TEXT NOT NULL DEFAULT '[]',
    content_type TEXT NOT NULL,
    producer_id TEXT NOT NULL,
    usage_count INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now')),
    last_used TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS blocked_topics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic_normalized TEXT UNIQUE NOT NULL,
    topic_original TEXT NOT NULL,
    reason TEXT NOT NULL,
    blocked_at TEXT DEFAULT (datetime('now')),
    blocked_until TEXT,
    conflict_count INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    body_markdown TEXT NOT NULL,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_fingerprints_full_hash ON content_fingerprints(full_text_hash);
CREATE INDEX IF NOT EXISTS idx_fingerprints_type ON content_fingerprints(content_type);
CREATE INDEX IF NOT EXISTS idx_fingerprints_created ON content_fingerprints(created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_blocked_topics_norm ON blocked_topics(topic_normalized);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
