package storage

import (
	"database/sql"
	"time"
)

// VideoRecord is one processed video row.
type VideoRecord struct {
	ID                   string         `db:"id"`
	FileName             string         `db:"file_name"`
	SourceType           string         `db:"source_type"`
	SourceURL            sql.NullString `db:"source_url"`
	Status               string         `db:"status"`
	Transcript           sql.NullString `db:"transcript"`
	StructuredTranscript sql.NullString `db:"structured_transcript"`
	QuestionsAnswers     sql.NullString `db:"questions_answers"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// PDFRecord is one processed PDF row.
type PDFRecord struct {
	ID                string         `db:"id"`
	FileName          string         `db:"file_name"`
	Status            string         `db:"status"`
	ExtractedText     sql.NullString `db:"extracted_text"`
	StructuredSummary sql.NullString `db:"structured_summary"`
	QuestionsAnswers  sql.NullString `db:"questions_answers"`
	ElyMetadata       sql.NullString `db:"ely_metadata"`
	CreatedAt         time.Time      `db:"created_at"`
}

// ScormRecord is one processed SCORM course row. VideosJSON holds the
// per-video transcription results as a JSON array.
type ScormRecord struct {
	ID                string         `db:"id"`
	ScormID           string         `db:"scorm_id"`
	Name              string         `db:"name"`
	Status            string         `db:"status"`
	ExtractedText     sql.NullString `db:"extracted_text"`
	StructuredSummary sql.NullString `db:"structured_summary"`
	QuestionsAnswers  sql.NullString `db:"questions_answers"`
	ElyMetadata       sql.NullString `db:"ely_metadata"`
	VideosJSON        sql.NullString `db:"videos_json"`
	CreatedAt         time.Time      `db:"created_at"`
}
