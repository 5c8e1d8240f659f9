package handler

import (
	"context"
	"log/slog"

	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
	"github.com/Ecenturetech/ScriptTranscipt/internal/storage"
	"github.com/Ecenturetech/ScriptTranscipt/shared/postgresql"
)

// JobQueue is the queue surface the HTTP layer needs.
type JobQueue interface {
	Add(jobType queue.JobType, payload queue.Payload) string
	Status(jobID string) *queue.JobView
	AllStatuses() []queue.JobView
	InfoSnapshot() queue.Info
}

// VideoLister pages through processed video rows.
type VideoLister interface {
	GetByID(ctx context.Context, id string) (*storage.VideoRecord, error)
	List(ctx context.Context, pageSize int, cursor *storage.Cursor) ([]storage.VideoRecord, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	DBClient  *postgresql.Client
	Queue     JobQueue
	Videos    VideoLister
	UploadDir string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	queue     JobQueue
	uploadDir string
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		queue:     deps.Queue,
		uploadDir: deps.UploadDir,
	}
}

// VideoHandler serves processed video records.
type VideoHandler struct {
	logger *slog.Logger
	videos VideoLister
}

// NewVideoHandler creates a new VideoHandler instance
func NewVideoHandler(deps *Dependencies) *VideoHandler {
	return &VideoHandler{
		logger: deps.Logger,
		videos: deps.Videos,
	}
}
