package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/subeero/mangapipe/internal/pkg/errcode"
	appErr "github.com/subeero/mangapipe/internal/pkg/errors"
	"github.com/subeero/mangapipe/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case appErr.IsConflict(err):
		response.Error(c, errcode.ErrConflict, err.Error())
	case appErr.IsBusy(err):
		response.Error(c, errcode.ErrSyncBusy, "sync already running")
	case errors.Is(err, appErr.ErrJobNotCancellable):
		response.Error(c, errcode.ErrJobNotCancellable, "job is not pending")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
