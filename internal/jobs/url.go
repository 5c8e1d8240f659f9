package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Ecenturetech/ScriptTranscipt/internal/caption"
	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
)

// handleURL processes a remote video. Caption tracks are preferred because
// they skip the whole download/split/transcribe path; YouTube videos without
// captions fall back to audio transcription. Vimeo videos without captions
// fail, since Vimeo does not expose raw media to API consumers.
func (d *Dispatcher) handleURL(ctx context.Context, p queue.URLPayload) (*queue.Result, error) {
	videoID := uuid.New().String()

	if err := d.deps.Videos.InsertProcessing(ctx, videoID, p.VideoURL, "url", p.VideoURL); err != nil {
		return nil, err
	}

	fail := func(err error) (*queue.Result, error) {
		if dbErr := d.deps.Videos.SetError(ctx, videoID, err.Error()); dbErr != nil {
			d.deps.Logger.Error("Failed to record video error",
				slog.String("video_id", videoID),
				slog.String("error", dbErr.Error()),
			)
		}
		return nil, err
	}

	switch {
	case caption.IsVimeoURL(p.VideoURL):
		transcript, err := d.deps.Vimeo.Transcript(ctx, p.VideoURL)
		if err != nil {
			return fail(fmt.Errorf("failed to fetch Vimeo captions: %w", err))
		}
		return d.enrichCaptionTranscript(ctx, videoID, p.VideoURL, transcript)

	case caption.IsYouTubeURL(p.VideoURL):
		transcript, err := d.deps.YouTube.Transcript(ctx, p.VideoURL, d.deps.Language)
		if err == nil {
			return d.enrichCaptionTranscript(ctx, videoID, p.VideoURL, transcript)
		}
		if !errors.Is(err, caption.ErrNoCaptions) {
			return fail(fmt.Errorf("failed to fetch YouTube captions: %w", err))
		}

		d.deps.Logger.Info("No captions available, falling back to audio transcription",
			slog.String("video_id", videoID),
		)

		baseName := "video-" + videoID
		audioPath := filepath.Join(d.deps.StorageDir, baseName+".m4a")
		if err := d.deps.YouTube.DownloadAudio(ctx, p.VideoURL, audioPath); err != nil {
			return fail(fmt.Errorf("failed to download audio: %w", err))
		}
		return d.transcribeAndEnrich(ctx, videoID, audioPath, baseName, p.VideoURL)

	default:
		return fail(fmt.Errorf("unsupported video URL: %s", p.VideoURL))
	}
}

// enrichCaptionTranscript runs the enrichment tail for a transcript that came
// from a caption track rather than speech-to-text.
func (d *Dispatcher) enrichCaptionTranscript(ctx context.Context, videoID, videoURL, transcript string) (*queue.Result, error) {
	fail := func(err error) (*queue.Result, error) {
		if dbErr := d.deps.Videos.SetError(ctx, videoID, err.Error()); dbErr != nil {
			d.deps.Logger.Error("Failed to record video error",
				slog.String("video_id", videoID),
				slog.String("error", dbErr.Error()),
			)
		}
		return nil, err
	}

	if err := d.deps.Videos.SaveTranscript(ctx, videoID, transcript); err != nil {
		return fail(err)
	}

	outcome, err := d.deps.Pipeline.Run(ctx, transcript, videoURL, false)
	if err != nil {
		return fail(err)
	}

	if err := d.deps.Videos.Complete(ctx, videoID, outcome.CorrectedText, outcome.StructuredSummary, outcome.QuestionsAnswers); err != nil {
		return fail(err)
	}

	return &queue.Result{
		EntityID:             videoID,
		FileName:             videoURL,
		Transcript:           outcome.CorrectedText,
		StructuredTranscript: outcome.StructuredSummary,
		QuestionsAnswers:     outcome.QuestionsAnswers,
		DegradedStages:       outcome.Degraded,
		Message:              "Vídeo processado com sucesso",
	}, nil
}
