package v1

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/cogniflow/server/internal/errors"
	"github.com/hrygo/cogniflow/server/middleware"
	"github.com/hrygo/cogniflow/server/service/item"
)

// HTTPErrorHandler renders every handler error as a JSON error body.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request error", "path", c.Path(), "error", err)
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

func errorResponse(err error) (int, apperrors.Body) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := apperrors.ErrCodeInvalidArgument
		switch {
		case httpErr.Code == http.StatusNotFound || httpErr.Code == http.StatusMethodNotAllowed:
			code = apperrors.ErrCodeNotFound
		case httpErr.Code == http.StatusUnauthorized:
			code = apperrors.ErrCodeUnauthorized
		case httpErr.Code == http.StatusTooManyRequests:
			code = apperrors.ErrCodeRateLimitExceeded
		case httpErr.Code >= http.StatusInternalServerError:
			code = apperrors.ErrCodeInternal
		}
		return httpErr.Code, apperrors.Body{Code: code, Message: fmt.Sprint(httpErr.Message)}
	}

	appErr := toAppError(err)
	return appErr.Code.HTTPStatus(), appErr.Body()
}

func toAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	switch {
	case errors.Is(err, item.ErrNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "item not found")
	case errors.Is(err, item.ErrInvalidInput):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, "request timed out")
	}
	return apperrors.Internal(err)
}

func currentUserID(c echo.Context) (int32, error) {
	userID, ok := middleware.UserIDFromContext(c.Request().Context())
	if !ok {
		return 0, apperrors.Unauthorized("authentication required")
	}
	return userID, nil
}

func pathID(c echo.Context, name string) (int32, error) {
	var id int32
	if err := echo.PathParamsBinder(c).MustInt32(name, &id).BindError(); err != nil {
		return 0, apperrors.InvalidArgument(fmt.Sprintf("invalid %s", name))
	}
	if id <= 0 {
		return 0, apperrors.InvalidArgument(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func bindBody(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidArgument, "invalid request body")
	}
	return nil
}
