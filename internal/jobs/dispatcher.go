package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Ecenturetech/ScriptTranscipt/internal/enrich"
	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
	"github.com/Ecenturetech/ScriptTranscipt/internal/scorm"
)

// Collaborator surfaces, narrowed to what the handlers call so tests can
// substitute fakes.

type Splitter interface {
	Split(ctx context.Context, inputPath, outputDir, baseName string) ([]string, error)
	Cleanup(chunkPaths []string)
}

type Transcriber interface {
	Transcribe(ctx context.Context, chunkPaths []string) (string, error)
}

type Enricher interface {
	Run(ctx context.Context, text, docName string, withMetadata bool) (enrich.Outcome, error)
}

type KeyChecker interface {
	CheckAPIKey() error
}

type PDFExtractor interface {
	ExtractText(filePath string) (string, error)
	ExtractViaVision(ctx context.Context, filePath string) (string, error)
}

type VimeoCaptions interface {
	Transcript(ctx context.Context, videoURL string) (string, error)
}

type YouTubeCaptions interface {
	Transcript(ctx context.Context, videoURL, language string) (string, error)
	DownloadAudio(ctx context.Context, videoURL, outputPath string) error
}

type ScormAPI interface {
	FetchCourse(ctx context.Context, scormID string) (*scorm.Course, string, error)
	CourseVideos(ctx context.Context, coursePath string) ([]scorm.Video, error)
	DownloadVideo(ctx context.Context, videoURL, destPath string) error
}

type VideoRepository interface {
	InsertProcessing(ctx context.Context, id, fileName, sourceType, sourceURL string) error
	SaveTranscript(ctx context.Context, id, transcript string) error
	Complete(ctx context.Context, id, transcript, structured, questionsAnswers string) error
	SetError(ctx context.Context, id, message string) error
}

type PDFRepository interface {
	InsertProcessing(ctx context.Context, id, fileName string) error
	SaveExtractedText(ctx context.Context, id, text string) error
	SaveMetadata(ctx context.Context, id, metadata string) error
	Complete(ctx context.Context, id, structuredSummary, questionsAnswers string) error
	SetError(ctx context.Context, id, message string) error
}

type ScormRepository interface {
	InsertProcessing(ctx context.Context, id, scormID, name string) error
	SaveExtractedText(ctx context.Context, id, text string) error
	SaveVideos(ctx context.Context, id, videosJSON string) error
	SaveMetadata(ctx context.Context, id, metadata string) error
	Complete(ctx context.Context, id, structuredSummary, questionsAnswers string) error
	SetError(ctx context.Context, id, message string) error
}

// Deps bundles the dispatcher's collaborators.
type Deps struct {
	StorageDir string
	Language   string

	Keys        KeyChecker
	Splitter    Splitter
	Transcriber Transcriber
	Pipeline    Enricher
	PDF         PDFExtractor
	Vimeo       VimeoCaptions
	YouTube     YouTubeCaptions
	Scorm       ScormAPI

	Videos VideoRepository
	PDFs   PDFRepository
	Scorms ScormRepository

	Logger *slog.Logger
}

// Dispatcher routes queued jobs to their type-specific handlers.
type Dispatcher struct {
	deps Deps
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

// Dispatch runs the job to completion. The payload union has exactly one
// concrete type per job type.
func (d *Dispatcher) Dispatch(ctx context.Context, job *queue.Job) (*queue.Result, error) {
	switch p := job.Payload.(type) {
	case queue.UploadPayload:
		return d.handleUpload(ctx, p)
	case queue.URLPayload:
		return d.handleURL(ctx, p)
	case queue.PDFPayload:
		return d.handlePDF(ctx, p)
	case queue.ScormPayload:
		return d.handleScorm(ctx, p)
	default:
		return nil, fmt.Errorf("unknown job payload type %T", job.Payload)
	}
}

// copyFile copies src to dst unless they are the same path.
func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	return nil
}

// removeSpool deletes the handler's spooled input once it has been copied
// into permanent storage.
func (d *Dispatcher) removeSpool(spoolPath, savedPath string) {
	if spoolPath == savedPath {
		return
	}
	if err := os.Remove(spoolPath); err != nil {
		d.deps.Logger.Warn("Failed to remove spooled file",
			slog.String("path", spoolPath),
			slog.String("error", err.Error()),
		)
	}
}

// cleanupChunks removes split artifacts but never the original input, which
// handlers keep as the stored media file.
func (d *Dispatcher) cleanupChunks(chunks []string, original string) {
	if len(chunks) == 1 && chunks[0] == original {
		return
	}
	d.deps.Splitter.Cleanup(chunks)
}
