package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cogniflow/server/internal/observability"
)

// MetricsOverviewResponse represents the overview response of system metrics
type MetricsOverviewResponse struct {
	TotalRequests int64                                   `json:"total_requests"`
	SuccessRate   float64                                 `json:"success_rate"`
	P50LatencyMs  int64                                   `json:"p50_latency_ms"`
	P95LatencyMs  int64                                   `json:"p95_latency_ms"`
	ErrorCount    int64                                   `json:"error_count"`
	Routes        map[string]*observability.RouteSnapshot `json:"routes"`
}

// GetMetricsOverview returns request metrics collected since start.
// GET /api/v1/system/metrics/overview
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	if s.Metrics == nil {
		return c.JSON(http.StatusOK, MetricsOverviewResponse{SuccessRate: 100, Routes: map[string]*observability.RouteSnapshot{}})
	}
	snap := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		P50LatencyMs:  snap.P50LatencyMs,
		P95LatencyMs:  snap.P95LatencyMs,
		ErrorCount:    snap.RequestFailed,
		Routes:        snap.Routes,
	})
}
