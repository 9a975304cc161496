package sqlite

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                  TEXT PRIMARY KEY,
	time                TEXT NOT NULL,
	app                 TEXT NOT NULL,
	title               TEXT NOT NULL,
	title_big           TEXT NOT NULL DEFAULT '',
	text                TEXT NOT NULL DEFAULT '',
	extra_info_text     TEXT NOT NULL DEFAULT '',
	grouped_messages    TEXT NOT NULL DEFAULT '[]',
	has_sent_to_webhook INTEGER NOT NULL DEFAULT 0,
	created_at          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_conversation
	ON notifications (app, title, title_big);

CREATE TABLE IF NOT EXISTS app_config (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	allowed_apps TEXT NOT NULL DEFAULT '[]',
	webhook_url  TEXT
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
