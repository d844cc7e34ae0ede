package sqlstore

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		color TEXT NOT NULL DEFAULT '',
		is_public BOOLEAN NOT NULL DEFAULT 0,
		revision INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calendars_owner ON calendars(owner_id)`,
	`CREATE TABLE IF NOT EXISTS events (
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		location TEXT,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		is_all_day BOOLEAN NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		deleted_at TIMESTAMP,
		PRIMARY KEY (calendar_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_range ON events(calendar_id, start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_deleted ON events(deleted_at)`,
	`CREATE TABLE IF NOT EXISTS shares (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		shared_with_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (calendar_id, shared_with_user_id)
	)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT,
		color TEXT NOT NULL DEFAULT '',
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		revision BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calendars_owner ON calendars(owner_id)`,
	`CREATE TABLE IF NOT EXISTS events (
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		location TEXT,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		is_all_day BOOLEAN NOT NULL DEFAULT FALSE,
		version BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ,
		PRIMARY KEY (calendar_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_range ON events(calendar_id, start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_events_deleted ON events(deleted_at)`,
	`CREATE TABLE IF NOT EXISTS shares (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		shared_with_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (calendar_id, shared_with_user_id)
	)`,
}
