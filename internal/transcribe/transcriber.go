package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Ecenturetech/ScriptTranscipt/internal/openai"
)

// ErrEmptyTranscript reports that every chunk came back blank.
var ErrEmptyTranscript = errors.New("transcription produced no text")

// SizeLimitError reports a chunk the speech-to-text API refused for size.
// It usually means the input could not be split (ffmpeg unavailable).
type SizeLimitError struct {
	Path   string
	SizeMB float64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file %s (%.2fMB) exceeds the transcription size limit; install ffmpeg so large files can be split", e.Path, e.SizeMB)
}

// SpeechToText is the provider surface the transcriber needs.
type SpeechToText interface {
	Transcribe(ctx context.Context, filePath, language string) (string, error)
}

// Transcriber turns an ordered list of audio chunks into a single transcript.
type Transcriber struct {
	client   SpeechToText
	language string
	logger   *slog.Logger
}

func New(client SpeechToText, language string, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		client:   client,
		language: language,
		logger:   logger,
	}
}

// Transcribe runs each chunk through the provider in order and joins the
// results with a single space. Any chunk failure fails the whole call; a
// blank final transcript is an error because every downstream stage needs
// text to work on.
func (t *Transcriber) Transcribe(ctx context.Context, chunkPaths []string) (string, error) {
	parts := make([]string, 0, len(chunkPaths))

	for i, path := range chunkPaths {
		t.logger.Info("Transcribing chunk",
			slog.Int("chunk", i+1),
			slog.Int("total", len(chunkPaths)),
		)

		text, err := t.client.Transcribe(ctx, path, t.language)
		if err != nil {
			if openai.IsTooLarge(err) {
				return "", &SizeLimitError{Path: path, SizeMB: fileSizeMB(path)}
			}
			return "", fmt.Errorf("failed to transcribe chunk %d: %w", i+1, err)
		}

		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	transcript := strings.Join(parts, " ")
	if strings.TrimSpace(transcript) == "" {
		return "", ErrEmptyTranscript
	}
	return transcript, nil
}

func fileSizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / (1024 * 1024)
}
