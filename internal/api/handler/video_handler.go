package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ecenturetech/ScriptTranscipt/internal/api/dto"
	"github.com/Ecenturetech/ScriptTranscipt/internal/storage"
)

// ListVideos handles GET /api/v1/videos
// Pages through processed videos newest-first with an opaque cursor.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	var req dto.ListVideosRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeVideoCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	// Fetch one extra row to know whether another page exists.
	records, err := h.videos.List(c.Request.Context(), req.PageSize+1, cursor)
	if err != nil {
		h.logger.Error("Failed to list videos", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list videos",
		})
		return
	}

	resp := dto.ListVideosResponse{Videos: []dto.VideoDTO{}}
	hasMore := len(records) > req.PageSize
	if hasMore {
		records = records[:req.PageSize]
	}
	for _, rec := range records {
		resp.Videos = append(resp.Videos, videoToDTO(rec))
	}
	if hasMore {
		last := records[len(records)-1]
		resp.NextCursor = EncodeVideoCursor(&storage.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetVideo handles GET /api/v1/videos/:id
func (h *VideoHandler) GetVideo(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.videos.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "video not found",
			})
			return
		}
		h.logger.Error("Failed to get video", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get video",
		})
		return
	}

	c.JSON(http.StatusOK, videoToDTO(*rec))
}

func videoToDTO(rec storage.VideoRecord) dto.VideoDTO {
	return dto.VideoDTO{
		ID:                   rec.ID,
		FileName:             rec.FileName,
		SourceType:           rec.SourceType,
		SourceURL:            rec.SourceURL.String,
		Status:               rec.Status,
		Transcript:           rec.Transcript.String,
		StructuredTranscript: rec.StructuredTranscript.String,
		QuestionsAnswers:     rec.QuestionsAnswers.String,
		CreatedAt:            rec.CreatedAt.Format(time.RFC3339),
	}
}
