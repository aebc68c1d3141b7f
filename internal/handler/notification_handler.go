package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/subeero/mangapipe/internal/pkg/errcode"
	"github.com/subeero/mangapipe/internal/pkg/response"
	"github.com/subeero/mangapipe/internal/service"
)

type NotificationHandler struct {
	notify *service.NotifyService
}

func NewNotificationHandler(notify *service.NotifyService) *NotificationHandler {
	return &NotificationHandler{notify: notify}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.Error(c, errcode.ErrInvalid, "user_id required")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	notifs, err := h.notify.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, notifs)
}
