package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/cogniflow/server/internal/errors"
)

func topicParam(c echo.Context) (string, error) {
	topic := strings.TrimSpace(c.QueryParam("topic"))
	if topic == "" {
		return "", apperrors.InvalidArgument("topic is required")
	}
	return topic, nil
}

// GetRelatedItems ranks the caller's items against a topic.
// GET /api/v1/items/related?topic=
func (s *APIV1Service) GetRelatedItems(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	topic, err := topicParam(c)
	if err != nil {
		return err
	}
	ranked, err := s.RelatedEngine.GetRelatedItems(c.Request().Context(), userID, topic)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"items": ranked})
}

// AnalyzeKnowledgeGap reports what the caller's notes on a topic lack.
// GET /api/v1/items/gap?topic=
func (s *APIV1Service) AnalyzeKnowledgeGap(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	topic, err := topicParam(c)
	if err != nil {
		return err
	}
	analysis, err := s.RelatedEngine.AnalyzeKnowledgeGap(c.Request().Context(), userID, topic)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis)
}
