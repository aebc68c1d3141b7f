package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/subeero/mangapipe/internal/model"
	"github.com/subeero/mangapipe/internal/pkg/errcode"
	"github.com/subeero/mangapipe/internal/pkg/response"
	"github.com/subeero/mangapipe/internal/service"
)

type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func (h *ReviewHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", model.ApprovalStatusPending)
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	items, err := h.reviews.ListByStatus(c.Request.Context(), status, offset, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	item, err := h.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.reviews.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

type decisionRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Notes      string `json:"notes"`
}

func (h *ReviewHandler) Approve(c *gin.Context) {
	h.decide(c, h.reviews.Approve)
}

func (h *ReviewHandler) Reject(c *gin.Context) {
	h.decide(c, h.reviews.Reject)
}

func (h *ReviewHandler) decide(c *gin.Context, fn func(ctx context.Context, id, reviewerID, notes string) error) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	if req.ReviewerID == "" {
		response.Error(c, errcode.ErrInvalid, "reviewer_id required")
		return
	}
	if err := fn(c.Request.Context(), c.Param("id"), req.ReviewerID, req.Notes); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
