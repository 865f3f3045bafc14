package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meigma/artifactcache"
)

// getCache serves GET /v1/cache/:hash.
func (s *Server) getCache(c *gin.Context) {
	hash := c.Param("hash")
	data, err := s.engine.Read(c.Request.Context(), hash, c.GetHeader("Authorization"))
	switch {
	case err == nil:
		c.Data(http.StatusOK, artifactcache.ContentType, data)
	case errors.Is(err, artifactcache.ErrForbidden):
		c.String(http.StatusForbidden, "Access forbidden")
	case errors.Is(err, artifactcache.ErrNotFound):
		c.String(http.StatusNotFound, "Cache not found")
	default:
		s.logger.Error("read failed", zap.String("hash", hash), zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal server error")
	}
}

// putCache serves PUT /v1/cache/:hash.
//
// The declared length comes from the Content-Length header; the body is
// read up to one byte past it so a longer body is detected as a length
// mismatch rather than silently truncated.
func (s *Server) putCache(c *gin.Context) {
	hash := c.Param("hash")
	declared := c.Request.ContentLength

	var data []byte
	if declared > 0 {
		var err error
		data, err = io.ReadAll(io.LimitReader(c.Request.Body, declared+1))
		if err != nil {
			c.String(http.StatusBadRequest, "Failed to read request body")
			return
		}
	}

	err := s.engine.Write(c.Request.Context(), hash, c.GetHeader("Authorization"), data, declared)
	switch {
	case err == nil:
		c.String(http.StatusAccepted, "Successfully uploaded the output")
	case errors.Is(err, artifactcache.ErrForbidden):
		c.String(http.StatusForbidden, "Access forbidden. Read-only token used for write operation")
	case errors.Is(err, artifactcache.ErrConflict):
		c.String(http.StatusConflict, "Cannot override an existing record")
	case errors.Is(err, artifactcache.ErrPayloadTooLarge):
		c.String(http.StatusRequestEntityTooLarge, "Cache item too large")
	case errors.Is(err, artifactcache.ErrBadRequest):
		c.String(http.StatusBadRequest, "Content-Length is required and must match the body")
	default:
		s.logger.Error("write failed", zap.String("hash", hash), zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal server error")
	}
}
