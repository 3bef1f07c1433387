package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"netwatch/internal/apperr"
	"netwatch/internal/query"
)

func (s *Server) handleDomainsList(c *gin.Context) {
	req := query.DomainsListRequest{ParentOnly: c.Query("parentOnly") == "true"}
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

	rows, err := s.query.DomainsList(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleDomainsGet(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		writeError(c, err)
		return
	}
	domain, err := s.query.DomainsGet(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain)
}

func (s *Server) handleDomainsTop(c *gin.Context) {
	n := 10
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(c, apperr.Validationf("n must be an integer, got %q", v))
			return
		}
		n = parsed
	}
	rows, err := s.query.DomainsTop(n, c.Query("period"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
