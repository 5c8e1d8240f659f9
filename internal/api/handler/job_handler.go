package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Ecenturetech/ScriptTranscipt/internal/api/dto"
	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
)

// CreateJob handles POST /api/v1/jobs
// File-carrying jobs (upload, pdf) arrive as multipart forms with a "file"
// part; url and scorm jobs arrive as JSON. Admission returns immediately,
// processing happens on the queue consumer.
func (h *JobHandler) CreateJob(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		h.createFileJob(c)
		return
	}

	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	var (
		jobType queue.JobType
		payload queue.Payload
	)
	switch queue.JobType(req.Type) {
	case queue.TypeURL:
		if req.Data.VideoURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "video_url is required"})
			return
		}
		jobType = queue.TypeURL
		payload = queue.URLPayload{VideoURL: req.Data.VideoURL}
	case queue.TypeScorm:
		if req.Data.ScormID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scorm_id is required"})
			return
		}
		jobType = queue.TypeScorm
		payload = queue.ScormPayload{
			ScormID:    req.Data.ScormID,
			ScormName:  req.Data.ScormName,
			CoursePath: req.Data.CoursePath,
		}
	case queue.TypeUpload, queue.TypePDF:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("job type %q requires a multipart file upload", req.Type),
		})
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown job type %q", req.Type),
		})
		return
	}

	jobID := h.queue.Add(jobType, payload)
	h.logger.Info("Job submitted",
		slog.String("job_id", jobID),
		slog.String("job_type", string(jobType)),
	)
	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		JobID:  jobID,
		Status: queue.StatusPending,
	})
}

// createFileJob admits an upload or pdf job from a multipart form. The file
// is spooled into the upload directory before the response; the handler
// copies it into permanent storage later.
func (h *JobHandler) createFileJob(c *gin.Context) {
	jobTypeStr := c.PostForm("type")
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	tempPath := filepath.Join(h.uploadDir, "incoming-"+uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		h.logger.Error("Failed to save uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save uploaded file"})
		return
	}

	var (
		jobType queue.JobType
		payload queue.Payload
	)
	switch queue.JobType(jobTypeStr) {
	case queue.TypeUpload:
		jobType = queue.TypeUpload
		payload = queue.UploadPayload{FilePath: tempPath, FileName: file.Filename}
	case queue.TypePDF:
		jobType = queue.TypePDF
		payload = queue.PDFPayload{
			FilePath:    tempPath,
			FileName:    file.Filename,
			ForceVision: c.PostForm("force_vision") == "true",
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("unknown job type %q for file upload", jobTypeStr),
		})
		return
	}

	jobID := h.queue.Add(jobType, payload)
	h.logger.Info("Job submitted",
		slog.String("job_id", jobID),
		slog.String("job_type", string(jobType)),
		slog.String("file_name", file.Filename),
	)
	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		JobID:  jobID,
		Status: queue.StatusPending,
	})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	view := h.queue.Status(jobID)
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("job %s not found", jobID),
		})
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"jobs": h.queue.AllStatuses(),
	})
}

// QueueInfo handles GET /api/v1/queue
func (h *JobHandler) QueueInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.InfoSnapshot())
}
