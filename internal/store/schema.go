package store

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	avatar_key TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	public BOOLEAN NOT NULL DEFAULT 0,
	allow_downloads BOOLEAN NOT NULL DEFAULT 0,
	social_prompt TEXT NOT NULL DEFAULT '',
	active_version_id TEXT REFERENCES track_versions(id) ON DELETE SET NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,

	FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_tracks_owner_id ON tracks(owner_id);

CREATE TABLE IF NOT EXISTS track_versions (
	id TEXT PRIMARY KEY,
	track_id TEXT NOT NULL,
	version_number INTEGER NOT NULL,

	original_key TEXT NOT NULL,
	stream_key TEXT,
	download_key TEXT,
	album_art_key TEXT,

	processing_status TEXT NOT NULL DEFAULT 'pending',
	error TEXT,

	-- Facts extracted from the upload
	duration REAL NOT NULL DEFAULT 0,
	bitrate INTEGER NOT NULL DEFAULT 0,
	sample_rate INTEGER NOT NULL DEFAULT 0,
	channel_count INTEGER NOT NULL DEFAULT 0,
	codec TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL DEFAULT '',
	year INTEGER NOT NULL DEFAULT 0,

	archived_at DATETIME,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,

	FOREIGN KEY (track_id) REFERENCES tracks(id),
	UNIQUE (track_id, version_number)
);

CREATE INDEX IF NOT EXISTS idx_versions_track_id ON track_versions(track_id);
CREATE INDEX IF NOT EXISTS idx_versions_status ON track_versions(processing_status);
`
