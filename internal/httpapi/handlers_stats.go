package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"netwatch/internal/apperr"
	"netwatch/internal/query"
)

func (s *Server) handleStatsSummary(c *gin.Context) {
	req := query.SummaryRequest{}
	if since, ok := parseOptionalInt64(c, "since"); ok {
		req.Since = &since
	}
	if until, ok := parseOptionalInt64(c, "until"); ok {
		req.Until = &until
	}

	sum, err := s.query.Summary(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleStatsTimeline(c *gin.Context) {
	req := query.TimelineRequest{Period: c.Query("period")}
	if since, ok := parseOptionalInt64(c, "since"); ok {
		req.Since = &since
	}
	if until, ok := parseOptionalInt64(c, "until"); ok {
		req.Until = &until
	}
	if b := c.Query("buckets"); b != "" {
		n, err := strconv.Atoi(b)
		if err != nil {
			writeError(c, apperr.Validationf("buckets must be an integer, got %q", b))
			return
		}
		req.Buckets = n
	}

	points, err := s.query.Timeline(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) handleStatsBandwidth(c *gin.Context) {
	bw, err := s.query.Bandwidth()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bw)
}

func parseOptionalInt64(c *gin.Context, key string) (int64, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
