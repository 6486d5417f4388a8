package db

import (
	"context"
	"fmt"

	"studi/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// duplicateWindowSeconds is how far back SaveResult looks for an identical
// result before writing. Rapid double submissions for the same session land
// inside this window.
const duplicateWindowSeconds = 5

const resultColumns = `id, user_id, file_id, file_name, score, total_questions, time_elapsed, difficulty, points, completed_at`

// SaveResult persists a completed quiz result. A result matching the same
// file, score and question count within the last few seconds is treated as a
// duplicate submission and rejected with models.ErrDuplicateResult.
func (db *DB) SaveResult(ctx context.Context, r models.QuizResult) (models.QuizResult, error) {
	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_results
		 WHERE user_id = $1 AND file_id = $2 AND score = $3 AND total_questions = $4
		   AND completed_at > now() - make_interval(secs => $5)`,
		pgUUID(r.UserID), pgUUID(r.FileID), r.Score, r.TotalQuestions, duplicateWindowSeconds).Scan(&count)
	if err != nil {
		return models.QuizResult{}, fmt.Errorf("check duplicate result: %w", err)
	}
	if count > 0 {
		return models.QuizResult{}, models.ErrDuplicateResult
	}

	row := db.Pool.QueryRow(ctx,
		`INSERT INTO quiz_results (user_id, file_id, file_name, score, total_questions, time_elapsed, difficulty, points, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+resultColumns,
		pgUUID(r.UserID), pgUUID(r.FileID), r.FileName, r.Score, r.TotalQuestions, r.TimeElapsed, string(r.Difficulty), r.Points, r.CompletedAt)

	saved, err := scanResult(row)
	if err != nil {
		return models.QuizResult{}, fmt.Errorf("save result: %w", err)
	}
	return saved, nil
}

// ListResults returns a user's quiz history, newest first, optionally
// filtered to one file. Near-identical rows are collapsed by
// DeduplicateResults before returning.
func (db *DB) ListResults(ctx context.Context, userID uuid.UUID, fileID *uuid.UUID) ([]models.QuizResult, error) {
	query := `SELECT ` + resultColumns + ` FROM quiz_results WHERE user_id = $1`
	args := []any{pgUUID(userID)}
	if fileID != nil {
		query += ` AND file_id = $2`
		args = append(args, pgUUID(*fileID))
	}
	query += ` ORDER BY completed_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := []models.QuizResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return DeduplicateResults(results), nil
}

// DeduplicateResults collapses results that share a file, score, question
// count and one-minute completion bucket, keeping the first occurrence.
// Older rows written before the save-time duplicate check existed can still
// contain such pairs.
func DeduplicateResults(results []models.QuizResult) []models.QuizResult {
	seen := make(map[string]bool, len(results))
	deduped := make([]models.QuizResult, 0, len(results))
	for _, r := range results {
		sig := fmt.Sprintf("%s-%d-%d-%d", r.FileID, r.Score, r.TotalQuestions, r.CompletedAt.Unix()/60)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		deduped = append(deduped, r)
	}
	return deduped
}

func scanResult(row pgx.Row) (models.QuizResult, error) {
	var (
		r              models.QuizResult
		id, user, file pgtype.UUID
		difficulty     string
	)
	if err := row.Scan(&id, &user, &file, &r.FileName, &r.Score, &r.TotalQuestions, &r.TimeElapsed, &difficulty, &r.Points, &r.CompletedAt); err != nil {
		return models.QuizResult{}, err
	}
	r.ID = uuid.UUID(id.Bytes)
	r.UserID = uuid.UUID(user.Bytes)
	r.FileID = uuid.UUID(file.Bytes)
	r.Difficulty = models.Difficulty(difficulty)
	return r, nil
}
