package db

import "context"

// Schema statements are idempotent so startup can run them unconditionally.
// Quiz results cascade from their file: deleting a study file removes its
// history.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		email text UNIQUE NOT NULL,
		name text NOT NULL DEFAULT '',
		google_id text,
		picture text,
		password_hash text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS study_files (
		id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		file_name text NOT NULL,
		display_name text NOT NULL,
		file_size bigint NOT NULL,
		file_type text NOT NULL,
		file_data bytea NOT NULL,
		uploaded_at timestamptz NOT NULL DEFAULT now(),
		last_modified timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS quiz_results (
		id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		file_id uuid NOT NULL REFERENCES study_files(id) ON DELETE CASCADE,
		file_name text NOT NULL,
		score int NOT NULL,
		total_questions int NOT NULL,
		time_elapsed text NOT NULL,
		difficulty text NOT NULL,
		points int NOT NULL DEFAULT 0,
		completed_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS quiz_results_user_completed_idx
		ON quiz_results (user_id, completed_at DESC)`,
	`CREATE INDEX IF NOT EXISTS study_files_user_idx
		ON study_files (user_id)`,
}

// EnsureSchema creates the application tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
