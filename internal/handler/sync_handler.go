package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/subeero/mangapipe/internal/model"
	"github.com/subeero/mangapipe/internal/pkg/errcode"
	"github.com/subeero/mangapipe/internal/pkg/response"
	"github.com/subeero/mangapipe/internal/service"
)

type SyncHandler struct {
	syncs *service.SyncService
}

func NewSyncHandler(syncs *service.SyncService) *SyncHandler {
	return &SyncHandler{syncs: syncs}
}

type syncRequest struct {
	SourceIDs []string `json:"source_ids"`
}

// Trigger accepts the request and returns the job id; progress is polled via
// the jobs endpoints.
func (h *SyncHandler) Trigger(c *gin.Context) {
	var req syncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid request body")
			return
		}
	}
	jobID, err := h.syncs.RequestManualSync(c.Request.Context(), req.SourceIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"job_id": jobID, "status": model.SyncJobStatusPending})
}

func (h *SyncHandler) GetJob(c *gin.Context) {
	job, err := h.syncs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}

func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.syncs.ListRecentJobs(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, jobs)
}

func (h *SyncHandler) CancelJob(c *gin.Context) {
	if err := h.syncs.CancelPendingJob(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *SyncHandler) GetSchedule(c *gin.Context) {
	cfg, err := h.syncs.GetSchedule(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, cfg)
}

func (h *SyncHandler) UpdateSchedule(c *gin.Context) {
	var cfg model.ScheduleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.Error(c, errcode.ErrScheduleInvalid, "invalid request body")
		return
	}
	if err := h.syncs.UpdateSchedule(c.Request.Context(), &cfg); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, &cfg)
}
