package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Administrative handlers backing the dashboard. These are reporting
// queries and bulk deletes over the entry store; they never go through
// the engine's authorized read/write path.

func (s *Server) listCaches(c *gin.Context) {
	items, err := s.engine.Entries().List(c.Request.Context())
	if err != nil {
		s.logger.Error("list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list caches"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.engine.Entries().Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) deleteCache(c *gin.Context) {
	hash := c.Param("hash")
	if err := s.engine.DeleteOne(c.Request.Context(), hash); err != nil {
		s.logger.Error("delete failed", zap.String("hash", hash), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to delete cache",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cache deleted successfully",
	})
}

func (s *Server) purgeCaches(c *gin.Context) {
	count, err := s.engine.PurgeAll(c.Request.Context())
	if err != nil {
		s.logger.Error("purge failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to purge caches",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Purged %d cache items successfully", count),
	})
}
