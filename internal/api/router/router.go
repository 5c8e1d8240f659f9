package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ecenturetech/ScriptTranscipt/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.DBClient != nil {
			if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "transcript-service",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	videoHandler := handler.NewVideoHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a new job
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs - List all job statuses
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Poll one job
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		// GET /api/v1/queue - Queue counters and in-flight job
		v1.GET("/queue", jobHandler.QueueInfo)

		videos := v1.Group("/videos")
		{
			// GET /api/v1/videos - Cursor-paginated listing
			videos.GET("", videoHandler.ListVideos)

			// GET /api/v1/videos/:id - One processed video
			videos.GET("/:id", videoHandler.GetVideo)
		}
	}

	return r
}
