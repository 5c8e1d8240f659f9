package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
	"github.com/Ecenturetech/ScriptTranscipt/internal/scorm"
)

// handleScorm builds a single text document out of a SCORM course: the report
// content (lessons, questions) plus transcriptions of every video found in the
// course assets. Videos that fail to download or transcribe are skipped so one
// broken asset does not sink the whole course.
func (d *Dispatcher) handleScorm(ctx context.Context, p queue.ScormPayload) (*queue.Result, error) {
	recordID := uuid.New().String()

	if err := d.deps.Scorms.InsertProcessing(ctx, recordID, p.ScormID, p.ScormName); err != nil {
		return nil, err
	}

	fail := func(err error) (*queue.Result, error) {
		if dbErr := d.deps.Scorms.SetError(ctx, recordID, err.Error()); dbErr != nil {
			d.deps.Logger.Error("Failed to record SCORM error",
				slog.String("record_id", recordID),
				slog.String("error", dbErr.Error()),
			)
		}
		return nil, err
	}

	if err := d.deps.Keys.CheckAPIKey(); err != nil {
		return fail(fmt.Errorf("SCORM processing requires a valid API key: %w", err))
	}

	course, coursePath, err := d.deps.Scorm.FetchCourse(ctx, p.ScormID)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch SCORM course %s: %w", p.ScormID, err))
	}
	if p.CoursePath != "" {
		coursePath = p.CoursePath
	}

	transcripts := d.transcribeCourseVideos(ctx, p.ScormID, coursePath)

	text := scorm.AssembleText(course, transcripts)
	if err := d.deps.Scorms.SaveExtractedText(ctx, recordID, text); err != nil {
		return fail(err)
	}
	if len(transcripts) > 0 {
		videosJSON, err := json.Marshal(transcripts)
		if err != nil {
			return fail(fmt.Errorf("failed to encode video results: %w", err))
		}
		if err := d.deps.Scorms.SaveVideos(ctx, recordID, string(videosJSON)); err != nil {
			return fail(err)
		}
	}

	docName := p.ScormName
	if docName == "" {
		docName = course.Title
	}

	outcome, err := d.deps.Pipeline.Run(ctx, text, docName, true)
	if err != nil {
		return fail(err)
	}

	if outcome.Metadata != "" {
		if err := d.deps.Scorms.SaveMetadata(ctx, recordID, outcome.Metadata); err != nil {
			return fail(err)
		}
	}
	if err := d.deps.Scorms.Complete(ctx, recordID, outcome.StructuredSummary, outcome.QuestionsAnswers); err != nil {
		return fail(err)
	}

	return &queue.Result{
		EntityID:             recordID,
		FileName:             docName,
		Transcript:           outcome.CorrectedText,
		StructuredTranscript: outcome.StructuredSummary,
		QuestionsAnswers:     outcome.QuestionsAnswers,
		Metadata:             outcome.Metadata,
		DegradedStages:       outcome.Degraded,
		Message:              "SCORM processado com sucesso",
	}, nil
}

// transcribeCourseVideos downloads and transcribes every video in the course.
// Failures are logged and skipped.
func (d *Dispatcher) transcribeCourseVideos(ctx context.Context, scormID, coursePath string) []scorm.VideoTranscript {
	videos, err := d.deps.Scorm.CourseVideos(ctx, coursePath)
	if err != nil {
		d.deps.Logger.Warn("Failed to discover course videos, continuing without transcriptions",
			slog.String("scorm_id", scormID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var transcripts []scorm.VideoTranscript
	for _, video := range videos {
		transcript, err := d.transcribeCourseVideo(ctx, scormID, video)
		if err != nil {
			d.deps.Logger.Warn("Skipping course video",
				slog.String("scorm_id", scormID),
				slog.String("video_id", video.ID),
				slog.String("video_title", video.Title),
				slog.String("error", err.Error()),
			)
			continue
		}

		vt := scorm.VideoTranscript{
			ID:          video.ID,
			Title:       video.Title,
			OriginalSrc: video.OriginalSrc,
			Transcript:  transcript,
		}

		// Per-video enrichment is best-effort: a stage failure keeps the
		// raw transcript.
		if outcome, err := d.deps.Pipeline.Run(ctx, transcript, video.Title, false); err != nil {
			d.deps.Logger.Warn("Video enrichment failed, keeping raw transcript",
				slog.String("scorm_id", scormID),
				slog.String("video_id", video.ID),
				slog.String("error", err.Error()),
			)
		} else {
			vt.Transcript = outcome.CorrectedText
			vt.StructuredTranscript = outcome.StructuredSummary
			vt.QuestionsAnswers = outcome.QuestionsAnswers
		}

		transcripts = append(transcripts, vt)
	}
	return transcripts
}

func (d *Dispatcher) transcribeCourseVideo(ctx context.Context, scormID string, video scorm.Video) (string, error) {
	ext := filepath.Ext(video.OriginalSrc)
	if ext == "" {
		ext = ".mp4"
	}
	baseName := "scorm-" + scormID + "-" + video.ID
	videoPath := filepath.Join(d.deps.StorageDir, baseName+ext)

	if err := d.deps.Scorm.DownloadVideo(ctx, video.Src, videoPath); err != nil {
		return "", fmt.Errorf("failed to download video: %w", err)
	}

	chunks, err := d.deps.Splitter.Split(ctx, videoPath, d.deps.StorageDir, baseName)
	if err != nil {
		return "", fmt.Errorf("failed to split audio: %w", err)
	}
	defer d.cleanupChunks(chunks, videoPath)

	transcript, err := d.deps.Transcriber.Transcribe(ctx, chunks)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe: %w", err)
	}
	return transcript, nil
}
