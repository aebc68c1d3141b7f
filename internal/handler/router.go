package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subeero/mangapipe/internal/middleware"
)

type RouterDeps struct {
	Sources       *SourceHandler
	Syncs         *SyncHandler
	Reviews       *ReviewHandler
	Covers        *CoverHandler
	Notifications *NotificationHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	api.POST("/sources", deps.Sources.Create)
	api.GET("/sources", deps.Sources.List)
	api.GET("/sources/:id", deps.Sources.Get)
	api.PUT("/sources/:id", deps.Sources.Update)
	api.DELETE("/sources/:id", deps.Sources.Delete)
	api.POST("/sources/:id/test", deps.Sources.Probe)

	// A second trigger inside the window just re-polls the same queue, so a
	// short per-client window is enough to absorb double clicks.
	syncTrigger := api.Group("")
	syncTrigger.Use(middleware.RateLimit(2 * time.Second))
	syncTrigger.POST("/sync", deps.Syncs.Trigger)

	api.GET("/sync/jobs", deps.Syncs.ListJobs)
	api.GET("/sync/jobs/:id", deps.Syncs.GetJob)
	api.DELETE("/sync/jobs/:id", deps.Syncs.CancelJob)
	api.GET("/sync/schedule", deps.Syncs.GetSchedule)
	api.PUT("/sync/schedule", deps.Syncs.UpdateSchedule)

	api.GET("/review/queue", deps.Reviews.List)
	api.GET("/review/queue/:id", deps.Reviews.Get)
	api.GET("/review/stats", deps.Reviews.Stats)
	api.POST("/review/queue/:id/approve", deps.Reviews.Approve)
	api.POST("/review/queue/:id/reject", deps.Reviews.Reject)

	api.GET("/notifications", deps.Notifications.List)

	api.GET("/covers/:key", deps.Covers.Get)
}
