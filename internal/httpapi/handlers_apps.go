package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"netwatch/internal/apperr"
	"netwatch/internal/query"
)

func (s *Server) handleAppsList(c *gin.Context) {
	req := query.AppsListRequest{
		SortBy: c.Query("sortBy"),
		Order:  c.Query("order"),
	}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeError(c, apperr.Validationf("limit must be an integer, got %q", l))
			return
		}
		req.Limit = n
	}
	if since, ok := parseOptionalInt64(c, "since"); ok {
		req.Since = &since
	}

	rows, err := s.query.AppsList(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleAppsGet(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	app, err := s.query.AppsGet(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) handleAppsTimeline(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	points, err := s.query.AppsTimeline(id, c.Query("period"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func parseIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, apperr.Validationf("id must be an integer, got %q", c.Param("id"))
	}
	return id, nil
}
