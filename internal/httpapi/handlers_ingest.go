package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"netwatch/internal/apperr"
	"netwatch/internal/ingest"
)

// activeTabRequest mirrors spec.md §6's POST /browser/active-tab body.
// Timestamp accepts either a unix integer or an ISO8601 string.
type activeTabRequest struct {
	Domain    string      `json:"domain" binding:"required"`
	Timestamp interface{} `json:"timestamp" binding:"required"`
	Browser   string      `json:"browser"`
}

func (s *Server) handleActiveTab(c *gin.Context) {
	var req activeTabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validationf("malformed request body: %v", err))
		return
	}

	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := s.ingest.Accept(ingest.Event{FQDN: req.Domain, TsUnix: ts, Browser: req.Browser})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "domainId": res.DomainID})
}

func parseTimestamp(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Unix(), nil
		}
		return 0, apperr.Validationf("timestamp %q is neither a unix integer nor RFC3339", v)
	default:
		return 0, apperr.Validation("timestamp must be an integer or ISO8601 string")
	}
}
