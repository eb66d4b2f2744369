package sqldb

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		avatar_url    TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL DEFAULT 'email',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS memories (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type           TEXT NOT NULL,
		title          TEXT NOT NULL DEFAULT '',
		content        TEXT NOT NULL,
		transcript     TEXT NOT NULL DEFAULT '',
		audio_url      TEXT NOT NULL DEFAULT '',
		audio_duration INTEGER NOT NULL DEFAULT 0,
		image_url      TEXT NOT NULL DEFAULT '',
		video_url      TEXT NOT NULL DEFAULT '',
		attachments    TEXT NOT NULL DEFAULT '[]',
		people         TEXT NOT NULL DEFAULT '[]',
		location       TEXT NOT NULL DEFAULT '',
		emotion        TEXT NOT NULL DEFAULT '',
		date           DATETIME NOT NULL,
		prompt         TEXT NOT NULL DEFAULT '',
		visibility     TEXT NOT NULL DEFAULT 'private',
		is_public      INTEGER NOT NULL DEFAULT 0,
		share_token    TEXT,
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_user_date ON memories(user_id, date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_share_token ON memories(share_token)`,
	`CREATE TABLE IF NOT EXISTS memory_shares (
		id                  TEXT PRIMARY KEY,
		memory_id           TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		shared_with_email   TEXT NOT NULL,
		shared_with_user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
		shared_by_user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission          TEXT NOT NULL DEFAULT 'view',
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_shares_memory ON memory_shares(memory_id)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_shares_email ON memory_shares(shared_with_email)`,
	`CREATE TABLE IF NOT EXISTS memory_prompts (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		category  TEXT NOT NULL,
		prompt    TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL DEFAULT '',
		avatar_url    TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL DEFAULT 'email',
		password_hash TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS memories (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type           TEXT NOT NULL,
		title          TEXT NOT NULL DEFAULT '',
		content        TEXT NOT NULL,
		transcript     TEXT NOT NULL DEFAULT '',
		audio_url      TEXT NOT NULL DEFAULT '',
		audio_duration INTEGER NOT NULL DEFAULT 0,
		image_url      TEXT NOT NULL DEFAULT '',
		video_url      TEXT NOT NULL DEFAULT '',
		attachments    JSONB NOT NULL DEFAULT '[]',
		people         JSONB NOT NULL DEFAULT '[]',
		location       TEXT NOT NULL DEFAULT '',
		emotion        TEXT NOT NULL DEFAULT '',
		date           TIMESTAMPTZ NOT NULL,
		prompt         TEXT NOT NULL DEFAULT '',
		visibility     TEXT NOT NULL DEFAULT 'private',
		is_public      BOOLEAN NOT NULL DEFAULT false,
		share_token    TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_user_date ON memories(user_id, date)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_share_token ON memories(share_token)`,
	`CREATE TABLE IF NOT EXISTS memory_shares (
		id                  TEXT PRIMARY KEY,
		memory_id           TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		shared_with_email   TEXT NOT NULL,
		shared_with_user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
		shared_by_user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission          TEXT NOT NULL DEFAULT 'view',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_shares_memory ON memory_shares(memory_id)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_shares_email ON memory_shares(shared_with_email)`,
	`CREATE TABLE IF NOT EXISTS memory_prompts (
		id        BIGSERIAL PRIMARY KEY,
		category  TEXT NOT NULL,
		prompt    TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
}
