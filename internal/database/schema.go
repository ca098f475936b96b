package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InitSchema creates all tables and indexes if they do not exist yet.
// Safe to run on every start. The assignment_config seed uses ON CONFLICT
// DO NOTHING so concurrent first boots cannot create a second row.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

		`CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'student',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS staff (
			id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name               TEXT NOT NULL,
			phone              TEXT NOT NULL,
			category           TEXT NOT NULL,
			category_expertise JSONB NOT NULL DEFAULT '{}',
			efficiency_score   DOUBLE PRECISION NOT NULL DEFAULT 50,
			current_workload   INTEGER NOT NULL DEFAULT 0 CHECK (current_workload >= 0),
			last_active        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active          BOOLEAN NOT NULL DEFAULT TRUE,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_staff_category ON staff(category) WHERE is_active`,

		`CREATE TABLE IF NOT EXISTS complaints (
			id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			student_id        UUID NOT NULL REFERENCES users(id),
			category          TEXT NOT NULL,
			sub_category      TEXT,
			description       TEXT NOT NULL,
			current_status    TEXT NOT NULL DEFAULT 'Received',
			assigned_staff_id UUID REFERENCES staff(id),
			image_url         TEXT,
			image_path        TEXT,
			is_reopened       BOOLEAN NOT NULL DEFAULT FALSE,
			is_locked         BOOLEAN NOT NULL DEFAULT FALSE,
			feedback_satisfied BOOLEAN,
			feedback_comment  TEXT,
			feedback_at       TIMESTAMPTZ,
			version           INTEGER NOT NULL DEFAULT 1,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_student ON complaints(student_id)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(current_status)`,
		`CREATE INDEX IF NOT EXISTS idx_complaints_assigned ON complaints(assigned_staff_id)`,

		`CREATE TABLE IF NOT EXISTS status_history (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			complaint_id UUID NOT NULL REFERENCES complaints(id) ON DELETE CASCADE,
			status       TEXT NOT NULL,
			note         TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_complaint ON status_history(complaint_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS assignment_config (
			id                   INTEGER PRIMARY KEY CHECK (id = 1),
			enabled_globally     BOOLEAN NOT NULL DEFAULT FALSE,
			category_enabled     JSONB NOT NULL DEFAULT '{}',
			max_workload         INTEGER NOT NULL DEFAULT 5 CHECK (max_workload >= 1),
			efficiency_threshold DOUBLE PRECISION NOT NULL DEFAULT 40,
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id     UUID NOT NULL REFERENCES users(id),
			title       TEXT NOT NULL,
			message     TEXT NOT NULL,
			type        TEXT NOT NULL,
			entity_type TEXT NOT NULL DEFAULT '',
			entity_id   TEXT NOT NULL DEFAULT '',
			is_read     BOOLEAN NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read)`,

		`CREATE TABLE IF NOT EXISTS activity_log (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id     UUID,
			action      TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			details     JSONB,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
