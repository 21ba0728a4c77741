package sqlog

// Schema DDL and queries for a single feed database.
const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS feed (
    key TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS log (
    seq INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    value BLOB,
    deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS log_name_seq ON log (name, seq);`

	insertFeedSQL  = `INSERT OR IGNORE INTO feed (key, created_at) VALUES (?, ?)`
	selectFeedSQL  = `SELECT key FROM feed LIMIT 1`
	countLogSQL    = `SELECT COUNT(*) FROM log`
	insertEntrySQL = `INSERT INTO log (seq, name, value, deleted) VALUES (?, ?, ?, ?)`

	// latest entry at exactly a name below a version
	selectLatestSQL = `SELECT seq, value, deleted FROM log WHERE name = ? AND seq < ? ORDER BY seq DESC LIMIT 1`

	// live names strictly below a prefix, below a version
	selectLiveBelowSQL = `
SELECT l.name FROM log l
JOIN (
    SELECT name, MAX(seq) AS seq FROM log
    WHERE seq < ? AND substr(name, 1, ?) = ?
    GROUP BY name
) m ON l.seq = m.seq
WHERE l.deleted = 0`

	// latest entry at or below a prefix, below a version
	selectHeadSQL = `SELECT MAX(seq) FROM log WHERE seq < ? AND (name = ? OR substr(name, 1, ?) = ?)`

	selectEntrySQL = `SELECT name, value, deleted FROM log WHERE seq = ?`
)
