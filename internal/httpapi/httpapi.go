// Package httpapi is a thin gin binding over Ingest and the QueryEngine
// (spec.md §6's external interfaces), bound to loopback only (spec.md
// §6: "must not make outbound network calls" / local-only process
// boundary).
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"netwatch/internal/apperr"
	"netwatch/internal/ingest"
	"netwatch/internal/query"
)

// Health reports the supervisor's degraded-mode flag (spec.md §7:
// "repeated invariant failures trip a degraded-mode flag observable via
// a health endpoint").
type Health interface {
	Degraded() (bool, string)
}

// Server wires the gin engine. It holds no business logic; every handler
// delegates to Ingest or Engine and translates apperr.Kind to a status
// code.
type Server struct {
	engine *gin.Engine
	ingest *ingest.Ingest
	query  *query.Engine
	health Health
}

// New constructs the gin router and registers every route spec.md §6
// names, grounded on the teacher's one-handler-per-route, gin.H response
// style (cmd/server/main.go, handlers_traffic.go).
func New(ing *ingest.Ingest, qe *query.Engine, health Health) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{engine: r, ingest: ing, query: qe, health: health}

	r.GET("/health", s.handleHealth)
	r.POST("/browser/active-tab", s.handleActiveTab)

	r.GET("/stats/summary", s.handleStatsSummary)
	r.GET("/stats/timeline", s.handleStatsTimeline)
	r.GET("/stats/bandwidth", s.handleStatsBandwidth)

	r.GET("/apps", s.handleAppsList)
	r.GET("/apps/:id", s.handleAppsGet)
	r.GET("/apps/:id/timeline", s.handleAppsTimeline)

	r.GET("/domains", s.handleDomainsList)
	r.GET("/domains/:id", s.handleDomainsGet)
	r.GET("/domains/top", s.handleDomainsTop)

	return s
}

// Run binds to loopback on port, matching spec.md §6's process boundary.
func (s *Server) Run(port int) error {
	return s.engine.Run(fmt.Sprintf("127.0.0.1:%d", port))
}

// Handler exposes the underlying http.Handler for tests and for embedding
// in an *http.Server the supervisor can shut down gracefully.
func (s *Server) Handler() http.Handler { return s.engine }

// writeError maps an apperr.Kind to an HTTP status and the caller-facing
// generic-category-plus-correlation-id body spec.md §7 requires.
func writeError(c *gin.Context, err error) {
	category, correlationID := apperr.Public(err)
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindTransientIO:
		status = http.StatusServiceUnavailable
	case apperr.KindInvariant, apperr.KindFatal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": category, "correlationId": correlationID})
}
