package db

import (
	"context"
	"errors"
	"fmt"

	"studi/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const fileMetaColumns = `id, user_id, file_name, display_name, file_size, file_type, uploaded_at, last_modified`

// InsertFile stores an uploaded study document and returns the saved record
// without the payload.
func (db *DB) InsertFile(ctx context.Context, f models.StudyFile) (models.StudyFile, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO study_files (user_id, file_name, display_name, file_size, file_type, file_data)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+fileMetaColumns,
		pgUUID(f.UserID), f.FileName, f.DisplayName, f.FileSize, f.FileType, f.FileData)

	saved, err := scanFileMeta(row)
	if err != nil {
		return models.StudyFile{}, fmt.Errorf("insert file: %w", err)
	}
	return saved, nil
}

// ListFiles returns a user's files, metadata only, newest upload first.
func (db *DB) ListFiles(ctx context.Context, userID uuid.UUID) ([]models.StudyFile, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+fileMetaColumns+` FROM study_files WHERE user_id = $1 ORDER BY uploaded_at DESC`,
		pgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files := []models.StudyFile{}
	for rows.Next() {
		f, err := scanFileMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// GetFile fetches one file including its payload, scoped to the owner.
func (db *DB) GetFile(ctx context.Context, fileID, userID uuid.UUID) (models.StudyFile, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+fileMetaColumns+`, file_data FROM study_files WHERE id = $1 AND user_id = $2`,
		pgUUID(fileID), pgUUID(userID))

	var (
		f              models.StudyFile
		id, owner      pgtype.UUID
	)
	err := row.Scan(&id, &owner, &f.FileName, &f.DisplayName, &f.FileSize, &f.FileType, &f.UploadedAt, &f.LastModified, &f.FileData)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StudyFile{}, models.ErrNotFound
	}
	if err != nil {
		return models.StudyFile{}, fmt.Errorf("get file: %w", err)
	}
	f.ID = uuid.UUID(id.Bytes)
	f.UserID = uuid.UUID(owner.Bytes)
	return f, nil
}

// RenameFile updates a file's display name and bumps last_modified.
func (db *DB) RenameFile(ctx context.Context, fileID, userID uuid.UUID, displayName string) (models.StudyFile, error) {
	row := db.Pool.QueryRow(ctx,
		`UPDATE study_files SET display_name = $3, last_modified = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+fileMetaColumns,
		pgUUID(fileID), pgUUID(userID), displayName)

	f, err := scanFileMeta(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StudyFile{}, models.ErrNotFound
	}
	if err != nil {
		return models.StudyFile{}, fmt.Errorf("rename file: %w", err)
	}
	return f, nil
}

// DeleteFiles removes a user's files by id. Quiz results referencing them are
// removed by the cascade. Returns the number of files deleted.
func (db *DB) DeleteFiles(ctx context.Context, userID uuid.UUID, fileIDs []uuid.UUID) (int64, error) {
	if len(fileIDs) == 0 {
		return 0, nil
	}
	ids := make([]pgtype.UUID, len(fileIDs))
	for i, id := range fileIDs {
		ids[i] = pgUUID(id)
	}
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM study_files WHERE user_id = $1 AND id = ANY($2)`,
		pgUUID(userID), ids)
	if err != nil {
		return 0, fmt.Errorf("delete files: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanFileMeta(row pgx.Row) (models.StudyFile, error) {
	var (
		f         models.StudyFile
		id, owner pgtype.UUID
	)
	if err := row.Scan(&id, &owner, &f.FileName, &f.DisplayName, &f.FileSize, &f.FileType, &f.UploadedAt, &f.LastModified); err != nil {
		return models.StudyFile{}, err
	}
	f.ID = uuid.UUID(id.Bytes)
	f.UserID = uuid.UUID(owner.Bytes)
	return f, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
