package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
)

// handleUpload processes a locally uploaded media file: store it, split,
// transcribe, enrich, persist. A failure after the row insert always marks
// the row errored so nothing stays processing forever.
func (d *Dispatcher) handleUpload(ctx context.Context, p queue.UploadPayload) (*queue.Result, error) {
	videoID := uuid.New().String()
	baseName := "video-" + videoID
	savedPath := filepath.Join(d.deps.StorageDir, baseName+filepath.Ext(p.FileName))

	if err := copyFile(p.FilePath, savedPath); err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}
	d.removeSpool(p.FilePath, savedPath)

	if err := d.deps.Videos.InsertProcessing(ctx, videoID, p.FileName, "upload", ""); err != nil {
		return nil, err
	}

	d.deps.Logger.Info("Processing uploaded video",
		slog.String("video_id", videoID),
		slog.String("file_name", p.FileName),
	)

	result, err := d.transcribeAndEnrich(ctx, videoID, savedPath, baseName, p.FileName)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// transcribeAndEnrich is the shared tail of the upload and URL-audio paths.
func (d *Dispatcher) transcribeAndEnrich(ctx context.Context, videoID, mediaPath, baseName, fileName string) (*queue.Result, error) {
	fail := func(err error) (*queue.Result, error) {
		if dbErr := d.deps.Videos.SetError(ctx, videoID, err.Error()); dbErr != nil {
			d.deps.Logger.Error("Failed to record video error",
				slog.String("video_id", videoID),
				slog.String("error", dbErr.Error()),
			)
		}
		return nil, err
	}

	if err := d.deps.Keys.CheckAPIKey(); err != nil {
		return fail(fmt.Errorf("media processing requires a valid API key: %w", err))
	}

	chunks, err := d.deps.Splitter.Split(ctx, mediaPath, d.deps.StorageDir, baseName)
	if err != nil {
		return fail(fmt.Errorf("failed to split media file: %w", err))
	}
	defer d.cleanupChunks(chunks, mediaPath)

	transcript, err := d.deps.Transcriber.Transcribe(ctx, chunks)
	if err != nil {
		return fail(err)
	}

	if err := d.deps.Videos.SaveTranscript(ctx, videoID, transcript); err != nil {
		return fail(err)
	}

	outcome, err := d.deps.Pipeline.Run(ctx, transcript, fileName, false)
	if err != nil {
		return fail(err)
	}

	if err := d.deps.Videos.Complete(ctx, videoID, outcome.CorrectedText, outcome.StructuredSummary, outcome.QuestionsAnswers); err != nil {
		return fail(err)
	}

	d.deps.Logger.Info("Video processing completed",
		slog.String("video_id", videoID),
		slog.Int("degraded_stages", len(outcome.Degraded)),
	)

	return &queue.Result{
		EntityID:             videoID,
		FileName:             fileName,
		Transcript:           outcome.CorrectedText,
		StructuredTranscript: outcome.StructuredSummary,
		QuestionsAnswers:     outcome.QuestionsAnswers,
		DegradedStages:       outcome.Degraded,
		Message:              "Vídeo processado com sucesso",
	}, nil
}
