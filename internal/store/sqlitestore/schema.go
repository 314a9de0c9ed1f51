package sqlitestore

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	title      TEXT    NOT NULL CHECK (length(trim(title)) > 0),
	done       INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at DESC, seq DESC);
`
