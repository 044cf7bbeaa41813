package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cogniflow/server/internal/observability"
)

// RequestContext attaches an observability.RequestContext to every request,
// echoes the request id header and logs and records the finished request.
func RequestContext(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx := observability.NewRequestContext(logger, req.Header.Get(observability.HeaderRequestID), "api")
			c.Response().Header().Set(observability.HeaderRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				// Let echo render the error so the final status is known.
				c.Error(err)
			}

			status := c.Response().Status
			route := req.Method + " " + c.Path()
			if metrics != nil {
				metrics.Record(route, status, reqCtx.Duration())
			}
			attrs := []slog.Attr{
				slog.String("route", route),
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
			}
			switch {
			case status >= http.StatusInternalServerError:
				if err == nil {
					err = echo.NewHTTPError(status)
				}
				reqCtx.Error("request failed", err, attrs...)
			case status >= http.StatusBadRequest:
				reqCtx.Warn("request rejected", attrs...)
			default:
				reqCtx.Info("request served", attrs...)
			}
			return nil
		}
	}
}
