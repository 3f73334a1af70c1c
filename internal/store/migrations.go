package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	tick_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	actor      TEXT NOT NULL DEFAULT '',
	subject    TEXT NOT NULL DEFAULT '',
	action     TEXT NOT NULL,
	timestamp  INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS replies (
	id         TEXT PRIMARY KEY,
	uri        TEXT NOT NULL,
	parent_uri TEXT NOT NULL,
	actor      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	tick_id    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
CREATE INDEX IF NOT EXISTS idx_replies_created ON replies(created_at);
CREATE INDEX IF NOT EXISTS idx_replies_parent ON replies(parent_uri);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
