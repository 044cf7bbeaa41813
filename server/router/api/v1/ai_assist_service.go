package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/cogniflow/server/internal/errors"
)

// GetAssistStatus reports the assist state of one of the caller's items.
// GET /api/v1/ai-assist/status/:itemId
func (s *APIV1Service) GetAssistStatus(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "itemId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.ItemService.Get(ctx, userID, itemID); err != nil {
		return err
	}
	status, err := s.AssistService.GetStatus(ctx, itemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// ProcessAssistNowRequest optionally lowers the manual batch size. Larger
// values are capped by the scheduler.
type ProcessAssistNowRequest struct {
	Limit int `json:"limit"`
}

// ProcessAssistNow processes pending assist tasks immediately.
// POST /api/v1/ai-assist/process-now
func (s *APIV1Service) ProcessAssistNow(c echo.Context) error {
	if _, err := currentUserID(c); err != nil {
		return err
	}
	if s.AssistScheduler == nil {
		return apperrors.ServiceUnavailable("assist processing is disabled")
	}
	req := &ProcessAssistNowRequest{}
	if err := bindBody(c, req); err != nil {
		return err
	}
	if req.Limit < 0 {
		return apperrors.InvalidArgument("limit must not be negative")
	}
	processed, err := s.AssistScheduler.ProcessNow(c.Request().Context(), req.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"processed": processed})
}
