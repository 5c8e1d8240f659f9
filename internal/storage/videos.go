package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Ecenturetech/ScriptTranscipt/shared/postgresql"
)

// Entity statuses shared by all record stores.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("record not found")

// VideoStore persists video processing results.
type VideoStore struct {
	pg *postgresql.Client
	db *sqlx.DB
}

func NewVideoStore(pg *postgresql.Client) *VideoStore {
	return &VideoStore{pg: pg, db: pg.GetDB()}
}

// InsertProcessing creates the row up front so a crash mid-job leaves a
// visible processing record instead of nothing.
func (s *VideoStore) InsertProcessing(ctx context.Context, id, fileName, sourceType, sourceURL string) error {
	query := `
		INSERT INTO videos (id, file_name, source_type, source_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $6)
	`
	if _, err := s.db.ExecContext(ctx, query, id, fileName, sourceType, sourceURL, StatusProcessing, time.Now()); err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

// SaveTranscript stores the raw transcript as soon as it exists, before the
// enrichment stages run.
func (s *VideoStore) SaveTranscript(ctx context.Context, id, transcript string) error {
	query := `UPDATE videos SET transcript = $1, updated_at = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, transcript, time.Now(), id); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Complete stores the enrichment results and marks the row completed. The
// questions_answers column is added on demand for databases created before
// the Q&A stage existed.
func (s *VideoStore) Complete(ctx context.Context, id, transcript, structured, questionsAnswers string) error {
	query := `
		UPDATE videos
		SET status = $1, transcript = $2, structured_transcript = $3, questions_answers = $4, updated_at = $5
		WHERE id = $6
	`
	alter := `ALTER TABLE videos ADD COLUMN IF NOT EXISTS questions_answers TEXT`
	if err := s.pg.ExecWithColumnRetry(ctx, query, alter, StatusCompleted, transcript, structured, questionsAnswers, time.Now(), id); err != nil {
		return fmt.Errorf("failed to complete video: %w", err)
	}
	return nil
}

// SetError marks the row failed, storing the error text in the transcript
// column so the UI can surface it.
func (s *VideoStore) SetError(ctx context.Context, id, message string) error {
	query := `UPDATE videos SET status = $1, transcript = $2, updated_at = $3 WHERE id = $4`
	if _, err := s.db.ExecContext(ctx, query, StatusError, message, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark video errored: %w", err)
	}
	return nil
}

func (s *VideoStore) GetByID(ctx context.Context, id string) (*VideoRecord, error) {
	var record VideoRecord
	query := `
		SELECT id, file_name, source_type, source_url, status, transcript, structured_transcript, questions_answers, created_at, updated_at
		FROM videos
		WHERE id = $1
	`
	if err := s.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &record, nil
}

// List returns videos newest first, cursor-paginated on (created_at, id).
// Page size limits are the caller's concern; only a non-positive size is
// replaced with the default.
func (s *VideoStore) List(ctx context.Context, pageSize int, cursor *Cursor) ([]VideoRecord, error) {
	if pageSize <= 0 {
		pageSize = 20
	}

	var records []VideoRecord
	var err error
	if cursor != nil {
		query := `
			SELECT id, file_name, source_type, source_url, status, transcript, structured_transcript, questions_answers, created_at, updated_at
			FROM videos
			WHERE (created_at, id) < ($1, $2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`
		err = s.db.SelectContext(ctx, &records, query, cursor.CreatedAt, cursor.ID, pageSize)
	} else {
		query := `
			SELECT id, file_name, source_type, source_url, status, transcript, structured_transcript, questions_answers, created_at, updated_at
			FROM videos
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`
		err = s.db.SelectContext(ctx, &records, query, pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return records, nil
}

// Cursor is a keyset pagination position.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}
