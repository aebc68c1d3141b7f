package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/subeero/mangapipe/internal/coverstore"
)

// CoverHandler serves locally mirrored cover images. S3-backed stores serve
// their own URLs, so this endpoint 404s for them.
type CoverHandler struct {
	store coverstore.Store
}

func NewCoverHandler(store coverstore.Store) *CoverHandler {
	return &CoverHandler{store: store}
}

func (h *CoverHandler) Get(c *gin.Context) {
	if h.store == nil {
		c.Status(http.StatusNotFound)
		return
	}
	key := c.Param("key")
	reader, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer reader.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
