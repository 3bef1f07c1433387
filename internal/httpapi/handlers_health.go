package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleHealth reports the degraded-mode flag a repeated-invariant-
// failure trip sets (spec.md §7 / SPEC_FULL.md supplemented features).
func (s *Server) handleHealth(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	degraded, reason := s.health.Degraded()
	if degraded {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "reason": reason})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
