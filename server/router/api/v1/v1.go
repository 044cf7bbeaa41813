package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cogniflow/internal/profile"
	"github.com/hrygo/cogniflow/server/internal/observability"
	"github.com/hrygo/cogniflow/server/middleware"
	"github.com/hrygo/cogniflow/server/service/assist"
	"github.com/hrygo/cogniflow/server/service/item"
	"github.com/hrygo/cogniflow/server/service/related"
	"github.com/hrygo/cogniflow/store"
)

// APIV1Service serves the JSON API under /api/v1.
type APIV1Service struct {
	Secret  string
	Profile *profile.Profile
	Store   *store.Store

	ItemService     *item.Service
	AssistService   *assist.Service
	AssistScheduler *assist.Scheduler
	RelatedEngine   *related.Engine

	Metrics *observability.Metrics
	Limiter *middleware.RateLimiter
}

// RegisterRoutes registers the health check and every /api/v1 route on
// echoServer. All /api/v1 routes require a bearer token and are rate
// limited per user.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.Healthz)

	limiter := s.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(0, 0)
	}
	g := echoServer.Group("/api/v1", middleware.Auth(s.Secret), middleware.RateLimit(limiter))

	g.POST("/items", s.CreateItem)
	g.POST("/items/template", s.CreateItemFromTemplate)
	g.POST("/items/query", s.QueryItems)
	g.GET("/items", s.ListItems)
	g.GET("/items/search", s.SearchItems)
	g.GET("/items/related", s.GetRelatedItems)
	g.GET("/items/gap", s.AnalyzeKnowledgeGap)
	g.GET("/items/feed.rss", s.GetItemFeed)
	g.GET("/items/:id", s.GetItem)
	g.PUT("/items/:id", s.UpdateItem)
	g.DELETE("/items/:id", s.DeleteItem)
	g.POST("/items/:id/archive", s.ArchiveItem)
	g.POST("/items/:id/unarchive", s.UnarchiveItem)
	g.POST("/items/:id/complete", s.CompleteItem)
	g.POST("/items/:id/sub-items/:subId/toggle", s.ToggleSubItem)
	g.GET("/items/:id/free-slots", s.GetFreeSlots)

	g.GET("/ai-assist/status/:itemId", s.GetAssistStatus)
	g.POST("/ai-assist/process-now", s.ProcessAssistNow)

	g.GET("/system/metrics/overview", s.GetMetricsOverview)
}

// Healthz reports whether the database is reachable.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	if err := s.Store.GetDriver().GetDB().PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
