package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/subeero/mangapipe/internal/pkg/errcode"
	"github.com/subeero/mangapipe/internal/pkg/response"
	"github.com/subeero/mangapipe/internal/service"
)

type SourceHandler struct {
	sources *service.SourceService
}

func NewSourceHandler(sources *service.SourceService) *SourceHandler {
	return &SourceHandler{sources: sources}
}

func (h *SourceHandler) Create(c *gin.Context) {
	var req service.SourceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	src, err := h.sources.Create(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, src)
}

func (h *SourceHandler) Update(c *gin.Context) {
	var req service.SourceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request body")
		return
	}
	src, err := h.sources.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, src)
}

func (h *SourceHandler) Delete(c *gin.Context) {
	if err := h.sources.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *SourceHandler) Get(c *gin.Context) {
	src, err := h.sources.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, src)
}

func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sources)
}

func (h *SourceHandler) Probe(c *gin.Context) {
	result, err := h.sources.Probe(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
