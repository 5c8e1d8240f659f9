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

// PDFStore persists PDF processing results.
type PDFStore struct {
	pg *postgresql.Client
	db *sqlx.DB
}

func NewPDFStore(pg *postgresql.Client) *PDFStore {
	return &PDFStore{pg: pg, db: pg.GetDB()}
}

func (s *PDFStore) InsertProcessing(ctx context.Context, id, fileName string) error {
	query := `
		INSERT INTO pdfs (id, file_name, status, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, id, fileName, StatusProcessing, time.Now()); err != nil {
		return fmt.Errorf("failed to insert pdf: %w", err)
	}
	return nil
}

// SaveExtractedText persists the corrected extraction before the later
// stages run, so a partial failure still leaves the text behind.
func (s *PDFStore) SaveExtractedText(ctx context.Context, id, text string) error {
	query := `UPDATE pdfs SET extracted_text = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, text, id); err != nil {
		return fmt.Errorf("failed to save extracted text: %w", err)
	}
	return nil
}

// SaveMetadata persists the metadata block immediately after generation.
// The ely_metadata column is added on demand for older databases.
func (s *PDFStore) SaveMetadata(ctx context.Context, id, metadata string) error {
	query := `UPDATE pdfs SET ely_metadata = $1 WHERE id = $2`
	alter := `ALTER TABLE pdfs ADD COLUMN IF NOT EXISTS ely_metadata TEXT`
	if err := s.pg.ExecWithColumnRetry(ctx, query, alter, metadata, id); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (s *PDFStore) Complete(ctx context.Context, id, structuredSummary, questionsAnswers string) error {
	query := `
		UPDATE pdfs
		SET status = $1, structured_summary = $2, questions_answers = $3
		WHERE id = $4
	`
	alter := `ALTER TABLE pdfs ADD COLUMN IF NOT EXISTS questions_answers TEXT`
	if err := s.pg.ExecWithColumnRetry(ctx, query, alter, StatusCompleted, structuredSummary, questionsAnswers, id); err != nil {
		return fmt.Errorf("failed to complete pdf: %w", err)
	}
	return nil
}

func (s *PDFStore) SetError(ctx context.Context, id, message string) error {
	query := `UPDATE pdfs SET status = $1, extracted_text = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, StatusError, message, id); err != nil {
		return fmt.Errorf("failed to mark pdf errored: %w", err)
	}
	return nil
}

func (s *PDFStore) GetByID(ctx context.Context, id string) (*PDFRecord, error) {
	var record PDFRecord
	query := `
		SELECT id, file_name, status, extracted_text, structured_summary, questions_answers, ely_metadata, created_at
		FROM pdfs
		WHERE id = $1
	`
	if err := s.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pdf: %w", err)
	}
	return &record, nil
}

// ScormStore persists SCORM course processing results.
type ScormStore struct {
	pg *postgresql.Client
	db *sqlx.DB
}

func NewScormStore(pg *postgresql.Client) *ScormStore {
	return &ScormStore{pg: pg, db: pg.GetDB()}
}

func (s *ScormStore) InsertProcessing(ctx context.Context, id, scormID, name string) error {
	query := `
		INSERT INTO scorms (id, scorm_id, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, id, scormID, name, StatusProcessing, time.Now()); err != nil {
		return fmt.Errorf("failed to insert scorm: %w", err)
	}
	return nil
}

func (s *ScormStore) SaveExtractedText(ctx context.Context, id, text string) error {
	query := `UPDATE scorms SET extracted_text = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, text, id); err != nil {
		return fmt.Errorf("failed to save extracted text: %w", err)
	}
	return nil
}

// SaveVideos stores the per-video transcription results as a JSON array.
func (s *ScormStore) SaveVideos(ctx context.Context, id, videosJSON string) error {
	query := `UPDATE scorms SET videos_json = $1 WHERE id = $2`
	alter := `ALTER TABLE scorms ADD COLUMN IF NOT EXISTS videos_json TEXT`
	if err := s.pg.ExecWithColumnRetry(ctx, query, alter, videosJSON, id); err != nil {
		return fmt.Errorf("failed to save scorm videos: %w", err)
	}
	return nil
}

func (s *ScormStore) SaveMetadata(ctx context.Context, id, metadata string) error {
	query := `UPDATE scorms SET ely_metadata = $1 WHERE id = $2`
	alter := `ALTER TABLE scorms ADD COLUMN IF NOT EXISTS ely_metadata TEXT`
	if err := s.pg.ExecWithColumnRetry(ctx, query, alter, metadata, id); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (s *ScormStore) Complete(ctx context.Context, id, structuredSummary, questionsAnswers string) error {
	query := `
		UPDATE scorms
		SET status = $1, structured_summary = $2, questions_answers = $3
		WHERE id = $4
	`
	alter := `ALTER TABLE scorms ADD COLUMN IF NOT EXISTS questions_answers TEXT`
	if err := s.pg.ExecWithColumnRetry(ctx, query, alter, StatusCompleted, structuredSummary, questionsAnswers, id); err != nil {
		return fmt.Errorf("failed to complete scorm: %w", err)
	}
	return nil
}

func (s *ScormStore) SetError(ctx context.Context, id, message string) error {
	query := `UPDATE scorms SET status = $1, extracted_text = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, StatusError, message, id); err != nil {
		return fmt.Errorf("failed to mark scorm errored: %w", err)
	}
	return nil
}

func (s *ScormStore) GetByID(ctx context.Context, id string) (*ScormRecord, error) {
	var record ScormRecord
	query := `
		SELECT id, scorm_id, name, status, extracted_text, structured_summary, questions_answers, ely_metadata, videos_json, created_at
		FROM scorms
		WHERE id = $1
	`
	if err := s.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scorm: %w", err)
	}
	return &record, nil
}
