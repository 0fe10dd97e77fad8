package postgres

import (
	"context"
	"fmt"
)

// schema holds the DDL for all tables owned by the service. The index on
// (state, priority, next_update_at) makes Bind a single-pass index scan.
const schema = `
	CREATE TABLE IF NOT EXISTS schedules (
		id SERIAL PRIMARY KEY,
		external_id INTEGER NOT NULL,
		source VARCHAR(16) NOT NULL,
		state VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		priority INTEGER NOT NULL DEFAULT 1000,
		next_update_at TIMESTAMPTZ,
		update_count INTEGER NOT NULL DEFAULT 0,
		has_poster BOOLEAN NOT NULL DEFAULT FALSE,
		has_start_air_date BOOLEAN NOT NULL DEFAULT FALSE,
		has_end_air_date BOOLEAN NOT NULL DEFAULT FALSE,
		has_type BOOLEAN NOT NULL DEFAULT FALSE,
		has_anidb_id BOOLEAN NOT NULL DEFAULT FALSE,
		has_mal_id BOOLEAN NOT NULL DEFAULT FALSE,
		has_ann_id BOOLEAN NOT NULL DEFAULT FALSE,
		has_tags BOOLEAN NOT NULL DEFAULT FALSE,
		has_ep_count BOOLEAN NOT NULL DEFAULT FALSE,
		has_all_eps BOOLEAN NOT NULL DEFAULT FALSE,
		has_rating BOOLEAN NOT NULL DEFAULT FALSE,
		has_description BOOLEAN NOT NULL DEFAULT FALSE,
		src_created_at TIMESTAMPTZ,
		src_updated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (source, external_id)
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_binding
		ON schedules (state, priority, next_update_at);

	CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY,
		source VARCHAR(16) NOT NULL,
		finished BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS queued_jobs (
		id UUID PRIMARY KEY,
		task_id UUID NOT NULL REFERENCES tasks(id),
		schedule_id INTEGER NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		UNIQUE (task_id, schedule_id)
	);

	CREATE INDEX IF NOT EXISTS idx_queued_jobs_task
		ON queued_jobs (task_id);
`

// EnsureSchema creates all tables and indexes if they do not exist yet
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
